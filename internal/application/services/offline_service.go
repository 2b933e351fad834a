// Package services provides application-level services that orchestrate
// business logic and coordinate between the content store, the
// interception worker, and the connectivity observer.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/connectivity"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	persistence "github.com/medicarepro/medicare-offline-go/internal/infrastructure/persistence/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/proxy"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// OfflineService is the façade the HTTP layer talks to. It coordinates
// downloads into the content store, cache pre-warming through the
// worker, and offline reads.
type OfflineService struct {
	store    *persistence.Store
	worker   *proxy.Worker
	observer *connectivity.Observer
	upstream *url.URL
	client   *http.Client
	logger   *logging.ChanneledLogger
}

// NewOfflineService creates the offline coordinator.
func NewOfflineService(store *persistence.Store, worker *proxy.Worker, observer *connectivity.Observer, upstreamBase string, logger *logging.ChanneledLogger) (*OfflineService, error) {
	upstream, err := url.Parse(upstreamBase)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL %q: %w", upstreamBase, err)
	}

	return &OfflineService{
		store:    store,
		worker:   worker,
		observer: observer,
		upstream: upstream,
		client:   &http.Client{Timeout: config.UpstreamRequestTimeout},
		logger:   logger,
	}, nil
}

// DownloadEssentialResources fetches the emergency and first-aid
// listings from upstream and replaces the content store with their
// union. Either both category downloads succeed and the store is
// replaced, or neither is and previously stored rows survive intact.
func (s *OfflineService) DownloadEssentialResources(ctx context.Context) error {
	start := time.Now()
	listingURLs := config.EssentialListingURLs()

	var combined []resources.MedicalResource
	for _, listing := range listingURLs {
		batch, err := s.fetchListing(ctx, listing)
		if err != nil {
			return fmt.Errorf("%w: %v", resources.ErrDownloadFailed, err)
		}
		combined = append(combined, batch...)
	}

	if err := s.store.ReplaceAll(combined); err != nil {
		return fmt.Errorf("%w: %v", resources.ErrDownloadFailed, err)
	}

	// Pre-warm the byte cache so the listings survive a cold start
	// without the store.
	s.worker.CacheURLs(listingURLs)

	s.logger.Sync().Info("Essential resources downloaded",
		"count", len(combined),
		"duration", time.Since(start).String())
	return nil
}

// GetCachedResources returns stored resources, optionally filtered by
// category, in priority order.
func (s *OfflineService) GetCachedResources(category string) ([]resources.MedicalResource, error) {
	if category == "" {
		return s.store.GetAll()
	}
	return s.store.GetByCategory(category)
}

// SearchCachedResources returns stored resources whose title, content,
// or tags contain the query, case-insensitively.
func (s *OfflineService) SearchCachedResources(query string) ([]resources.MedicalResource, error) {
	return s.store.Search(query)
}

// IsOffline reports the connectivity observer's current view.
func (s *OfflineService) IsOffline() bool {
	return s.observer.IsOffline()
}

// GetStorageStats reports how much the content store holds. It never
// fails; a broken store reports zero usage.
func (s *OfflineService) GetStorageStats() resources.StorageStats {
	return s.store.EstimateUsage()
}

// ClearOfflineCache empties the content store and the dynamic byte
// cache generation. Static shell entries are left alone so navigation
// keeps working offline.
func (s *OfflineService) ClearOfflineCache() error {
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear content store: %w", err)
	}
	if err := s.worker.ClearDynamic(); err != nil {
		return fmt.Errorf("failed to clear dynamic cache: %w", err)
	}
	s.logger.Store().Info("Offline cache cleared")
	return nil
}

func (s *OfflineService) fetchListing(ctx context.Context, listing string) ([]resources.MedicalResource, error) {
	ref, err := url.Parse(listing)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %q: %w", listing, err)
	}

	target := s.upstream.ResolveReference(ref).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", listing, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: upstream returned %d", listing, resp.StatusCode)
	}

	var batch []resources.MedicalResource
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode %s: %w", listing, err)
	}

	return batch, nil
}
