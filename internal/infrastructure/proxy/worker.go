// Package proxy implements the network interception layer: a long-lived
// worker that sits between the application and the upstream content API,
// keeps versioned byte-cache generations seeded from a URL manifest, and
// serves useful responses across restarts and during total network loss.
package proxy

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/caching/generations"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// CacheStatus answers the GET_CACHE_STATUS message.
type CacheStatus struct {
	IsOfflineReady bool  `json:"isOfflineReady"`
	CacheSize      int64 `json:"cacheSize"`
}

type command struct {
	cacheURLs []string
	statusCh  chan CacheStatus
	syncTag   string
}

// Worker owns the byte-cache generations and the routing policy. Control
// operations arrive on a command channel processed by Run; request
// routing reads the active generation pair under a read lock.
type Worker struct {
	store    *generations.Store
	manifest *config.Manifest
	upstream *url.URL
	client   *http.Client
	logger   *logging.ChanneledLogger

	commands chan command

	state workerState
}

// NewWorker creates the interception worker. Install/Activate must run
// before the worker serves requests from a fresh cache; with a previous
// generation on disk the worker serves immediately.
func NewWorker(store *generations.Store, manifest *config.Manifest, upstreamBase string, logger *logging.ChanneledLogger) (*Worker, error) {
	upstream, err := url.Parse(upstreamBase)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL %q: %w", upstreamBase, err)
	}

	w := &Worker{
		store:    store,
		manifest: manifest,
		upstream: upstream,
		client:   &http.Client{Timeout: config.UpstreamRequestTimeout},
		logger:   logger,
		commands: make(chan command, 64),
	}
	w.state.setNames(config.StaticCacheName(), config.DynamicCacheName())
	return w, nil
}

// Install seeds candidate static and dynamic generations for the given
// version from the manifest. All-or-nothing: every manifest URL is
// fetched into memory first, and any fetch failure discards the whole
// candidate so a partially-seeded cache is never activated. The
// previously active version keeps serving either way.
func (w *Worker) Install(version string) error {
	start := time.Now()
	staticName := config.StaticCachePrefix + version
	dynamicName := config.DynamicCachePrefix + version

	w.logger.Proxy().Info("Installing cache version", "version", version)

	type fetched struct {
		generation string
		url        string
		entry      *generations.Entry
	}

	var staged []fetched
	stage := func(generation string, urls []string) error {
		for _, u := range urls {
			entry, err := w.fetch(u)
			if err != nil {
				return fmt.Errorf("manifest fetch %s failed: %w", u, err)
			}
			if entry.Status < 200 || entry.Status > 299 {
				return fmt.Errorf("manifest fetch %s returned status %d", u, entry.Status)
			}
			staged = append(staged, fetched{generation, u, entry})
		}
		return nil
	}

	if err := stage(staticName, w.manifest.StaticURLs()); err != nil {
		w.logger.Proxy().Error("Install aborted, previous version keeps serving", "version", version, "error", err.Error())
		return err
	}
	if err := stage(dynamicName, w.manifest.DynamicURLs()); err != nil {
		w.logger.Proxy().Error("Install aborted, previous version keeps serving", "version", version, "error", err.Error())
		return err
	}

	for _, f := range staged {
		if err := w.store.Put(f.generation, f.url, f.entry); err != nil {
			// Roll the candidate back; a half-written generation is useless.
			w.store.DeleteGeneration(staticName)
			w.store.DeleteGeneration(dynamicName)
			w.logger.Proxy().Error("Install write failed, candidate discarded", "version", version, "error", err.Error())
			return err
		}
	}

	w.logger.Proxy().Info("Cache version installed", "version", version, "urls", len(staged), "duration", time.Since(start))
	return nil
}

// Activate makes the given version's generation pair current and deletes
// every generation whose name does not match it. Open views switch to
// the new pair immediately.
func (w *Worker) Activate(version string) error {
	staticName := config.StaticCachePrefix + version
	dynamicName := config.DynamicCachePrefix + version

	names, err := w.store.Generations()
	if err != nil {
		return fmt.Errorf("activation scan failed: %w", err)
	}

	for _, name := range names {
		if name == staticName || name == dynamicName {
			continue
		}
		if err := w.store.DeleteGeneration(name); err != nil {
			w.logger.Proxy().Error("Failed to delete superseded generation", "generation", name, "error", err.Error())
		}
	}

	w.state.setNames(staticName, dynamicName)
	w.logger.Proxy().Info("Cache version activated", "version", version)
	return nil
}

// Run processes control messages and drives the periodic re-sync. It is
// the only goroutine that mutates worker state.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(config.SyncInterval)
	defer ticker.Stop()

	w.logger.Proxy().Info("Interception worker started", "syncInterval", config.SyncInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Proxy().Info("Interception worker stopping")
			return
		case <-ticker.C:
			w.syncNow(config.SyncTag)
		case cmd := <-w.commands:
			w.handleCommand(cmd)
		}
	}
}

func (w *Worker) handleCommand(cmd command) {
	switch {
	case len(cmd.cacheURLs) > 0:
		w.cacheURLs(cmd.cacheURLs)
	case cmd.statusCh != nil:
		cmd.statusCh <- w.status()
	case cmd.syncTag != "":
		w.syncNow(cmd.syncTag)
	}
}

// CacheURLs handles the CACHE_MEDICAL_RESOURCES message: fetch each URL
// and admit its current response into the dynamic generation.
func (w *Worker) CacheURLs(urls []string) {
	w.commands <- command{cacheURLs: urls}
}

// Status handles the GET_CACHE_STATUS message, replying on a dedicated
// channel once the worker processes the command.
func (w *Worker) Status(ctx context.Context) (CacheStatus, error) {
	reply := make(chan CacheStatus, 1)
	select {
	case w.commands <- command{statusCh: reply}:
	case <-ctx.Done():
		return CacheStatus{}, ctx.Err()
	}

	select {
	case status := <-reply:
		return status, nil
	case <-ctx.Done():
		return CacheStatus{}, ctx.Err()
	}
}

// TriggerSync queues a deferred re-sync run for the given tag.
func (w *Worker) TriggerSync(tag string) {
	select {
	case w.commands <- command{syncTag: tag}:
	default:
		w.logger.Sync().Warn("Sync trigger dropped, command queue full", "tag", tag)
	}
}

// ClearDynamic drops the active dynamic-content generation. Used by the
// coordinator's clear-cache operation.
func (w *Worker) ClearDynamic() error {
	_, dynamicName := w.state.names()
	return w.store.DeleteGeneration(dynamicName)
}

func (w *Worker) cacheURLs(urls []string) {
	_, dynamicName := w.state.names()
	for _, u := range urls {
		entry, err := w.fetch(u)
		if err != nil {
			w.logger.Cache().Warn("Requested URL could not be cached", "url", u, "error", err.Error())
			continue
		}
		if err := w.store.Put(dynamicName, u, entry); err != nil {
			w.logger.Cache().Warn("Cache admission refused", "url", u, "error", err.Error())
		}
	}
}

func (w *Worker) status() CacheStatus {
	staticName, dynamicName := w.state.names()

	ready := true
	for _, u := range w.manifest.DynamicURLs() {
		if _, ok := w.store.Get(dynamicName, u); !ok {
			ready = false
			break
		}
	}

	_, staticSize := w.store.Stats(staticName)
	_, dynamicSize := w.store.Stats(dynamicName)

	return CacheStatus{
		IsOfflineReady: ready,
		CacheSize:      staticSize + dynamicSize,
	}
}

// syncNow re-fetches each manifest URL and overwrites its dynamic cache
// entry. Individual URL failures are logged and skipped; a flaky network
// must not abort the whole run.
func (w *Worker) syncNow(tag string) {
	if tag != config.SyncTag {
		w.logger.Sync().Debug("Ignoring unknown sync tag", "tag", tag)
		return
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))).String()
	logger := w.logger.Sync().With("runId", runID, "tag", tag)

	start := time.Now()
	_, dynamicName := w.state.names()

	var updated, failed int
	for _, u := range w.manifest.DynamicURLs() {
		entry, err := w.fetch(u)
		if err != nil {
			logger.Warn("Sync fetch failed, keeping previous entry", "url", u, "error", err.Error())
			failed++
			continue
		}
		if err := w.store.Put(dynamicName, u, entry); err != nil {
			logger.Warn("Sync write failed, keeping previous entry", "url", u, "error", err.Error())
			failed++
			continue
		}
		updated++
	}

	logger.Info("Sync run complete", "updated", updated, "failed", failed, "duration", time.Since(start))
}

// fetch performs a GET against the upstream for a gateway-relative URL
// and reads the full response. Content payloads are small JSON or shell
// assets; buffering whole bodies is fine.
func (w *Worker) fetch(relative string) (*generations.Entry, error) {
	ref, err := url.Parse(relative)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", relative, err)
	}

	req, err := http.NewRequest(http.MethodGet, w.upstream.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &generations.Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}
