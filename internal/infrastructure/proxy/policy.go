package proxy

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/caching/generations"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// Markers distinguishing a degraded response from live content. The UI
// uses them to show the "cached/offline data" indicator.
const (
	FallbackHeader     = "X-Offline-Fallback"
	FallbackStaleCache = "stale-cache"
	FallbackSynthetic  = "synthesized"
	FallbackShell      = "cached-shell"
	FallbackPage       = "offline-page"
)

// workerState holds the active generation pair. Activation swaps both
// names atomically so in-flight requests see a consistent pair.
type workerState struct {
	mu          sync.RWMutex
	staticName  string
	dynamicName string
}

func (s *workerState) setNames(staticName, dynamicName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staticName = staticName
	s.dynamicName = dynamicName
}

func (s *workerState) names() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staticName, s.dynamicName
}

// ServeHTTP routes one intercepted request through the three-tier policy:
// the resource-listing API family is network-first with a cache or
// synthesized floor, navigations are network-first with a shell fallback,
// and static assets are cache-first. Every branch terminates in some
// response; a failure here must never break the whole page load.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/"):
		w.handleAPI(rw, r)
	case isNavigation(r):
		w.handleNavigation(rw, r)
	default:
		w.handleAsset(rw, r)
	}
}

func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if r.URL.Path == "/" || r.URL.Path == "/offline-resources" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func isResourceListing(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, config.ResourceListingPath)
}

// handleAPI is network-first. Successful GET listing responses are
// admitted into the dynamic generation keyed by the full request URI, so
// each category filter caches as a distinct entry. Cached and
// synthesized fallbacks replay only for GET requests.
func (w *Worker) handleAPI(rw http.ResponseWriter, r *http.Request) {
	key := r.URL.RequestURI()
	_, dynamicName := w.state.names()

	entry, err := w.forward(r)
	if err == nil {
		if r.Method == http.MethodGet && isResourceListing(r) && entry.Status >= 200 && entry.Status <= 299 {
			if putErr := w.store.Put(dynamicName, key, entry); putErr != nil {
				w.logger.Cache().Warn("Listing response not cached", "url", key, "error", putErr.Error())
			}
		}
		writeEntry(rw, entry)
		return
	}

	w.logger.Proxy().Warn("Network failed for API request, trying cache", "url", key, "error", err.Error())

	if r.Method == http.MethodGet {
		if cached, ok := w.store.Get(dynamicName, key); ok {
			w.logger.LogFallbackServed(FallbackStaleCache, key)
			rw.Header().Set(FallbackHeader, FallbackStaleCache)
			writeEntry(rw, cached)
			return
		}
	}

	if r.Method == http.MethodGet && isResourceListing(r) {
		w.logger.LogFallbackServed(FallbackSynthetic, key)
		writeFallbackFloor(rw)
		return
	}

	writeOfflineError(rw)
}

// handleNavigation is network-first; on failure it replays the cached
// application shell, else a self-contained offline notice page that
// still surfaces the emergency-call instruction.
func (w *Worker) handleNavigation(rw http.ResponseWriter, r *http.Request) {
	entry, err := w.forward(r)
	if err == nil {
		writeEntry(rw, entry)
		return
	}

	w.logger.Proxy().Warn("Network failed for navigation, serving shell", "url", r.URL.Path, "error", err.Error())

	staticName, _ := w.state.names()
	if shell, ok := w.store.Get(staticName, "/"); ok {
		w.logger.LogFallbackServed(FallbackShell, r.URL.Path)
		rw.Header().Set(FallbackHeader, FallbackShell)
		writeEntry(rw, shell)
		return
	}

	w.logger.LogFallbackServed(FallbackPage, r.URL.Path)
	rw.Header().Set(FallbackHeader, FallbackPage)
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte(offlinePage))
}

// handleAsset is cache-first: static assets rarely change, so
// availability beats freshness. A total failure returns an empty
// response rather than erroring the page load.
func (w *Worker) handleAsset(rw http.ResponseWriter, r *http.Request) {
	key := r.URL.RequestURI()
	staticName, _ := w.state.names()

	if cached, ok := w.store.Get(staticName, key); ok {
		writeEntry(rw, cached)
		return
	}

	entry, err := w.forward(r)
	if err == nil {
		if entry.Status >= 200 && entry.Status <= 299 {
			if putErr := w.store.Put(staticName, key, entry); putErr != nil {
				w.logger.Cache().Warn("Asset response not cached", "url", key, "error", putErr.Error())
			}
		}
		writeEntry(rw, entry)
		return
	}

	w.logger.Proxy().Warn("Asset unavailable offline", "url", key, "error", err.Error())
	rw.WriteHeader(http.StatusRequestTimeout)
}

// forward relays the intercepted request upstream and buffers the full
// response so it can be both returned and admitted to the cache.
func (w *Worker) forward(r *http.Request) (*generations.Entry, error) {
	out := r.Clone(r.Context())
	out.URL.Scheme = w.upstream.Scheme
	out.URL.Host = w.upstream.Host
	out.RequestURI = ""
	out.Host = w.upstream.Host

	resp, err := w.client.Do(out)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &generations.Entry{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func writeEntry(rw http.ResponseWriter, entry *generations.Entry) {
	for key, values := range entry.Header {
		for _, v := range values {
			rw.Header().Add(key, v)
		}
	}
	rw.WriteHeader(entry.Status)
	rw.Write(entry.Body)
}
