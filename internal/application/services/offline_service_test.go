package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/caching/generations"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/connectivity"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	persistence "github.com/medicarepro/medicare-offline-go/internal/infrastructure/persistence/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/proxy"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToConsole = false
	cfg.LogDirectory = t.TempDir()
	cfg.DefaultLevel = slog.LevelError

	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

// listingUpstream serves per-category listings, with an optional flag
// that fails exactly one category to exercise the all-or-nothing rule.
type listingUpstream struct {
	server       *httptest.Server
	failFirstAid atomic.Bool
}

func newListingUpstream(t *testing.T) *listingUpstream {
	t.Helper()
	u := &listingUpstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == resources.CategoryFirstAid && u.failFirstAid.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch category {
		case resources.CategoryEmergency:
			w.Write([]byte(`[{"id":"er-1","title":"Call 911","category":"emergency","content":"Dial emergency services.","tags":["emergency"],"priority":1,"lastUpdated":"2026-08-01T00:00:00Z"}]`))
		case resources.CategoryFirstAid:
			w.Write([]byte(`[{"id":"fa-1","title":"CPR Basics","category":"first-aid","content":"30 compressions, 2 breaths.","tags":["cpr"],"priority":2,"lastUpdated":"2026-08-01T00:00:00Z"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(u.server.Close)
	return u
}

func newTestService(t *testing.T, upstreamURL string) (*OfflineService, *persistence.Store) {
	t.Helper()
	logger := newTestLogger(t)

	store := persistence.NewStore("sqlite3", t.TempDir(), "", logger)
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { store.Close() })

	genStore, err := generations.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { genStore.Close() })

	manifest := config.DefaultManifest()
	worker, err := proxy.NewWorker(genStore, manifest, upstreamURL, logger)
	require.NoError(t, err)

	observer, err := connectivity.NewObserver(upstreamURL, nil, logger)
	require.NoError(t, err)

	svc, err := NewOfflineService(store, worker, observer, upstreamURL, logger)
	require.NoError(t, err)
	return svc, store
}

func TestDownloadEssentialResourcesReplacesStore(t *testing.T) {
	upstream := newListingUpstream(t)
	svc, store := newTestService(t, upstream.server.URL)

	require.NoError(t, svc.DownloadEssentialResources(context.Background()))

	got, err := store.GetAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "er-1", got[0].ID)
	assert.Equal(t, "fa-1", got[1].ID)
}

func TestDownloadFailureLeavesStoreUntouched(t *testing.T) {
	upstream := newListingUpstream(t)
	svc, store := newTestService(t, upstream.server.URL)

	require.NoError(t, svc.DownloadEssentialResources(context.Background()))

	// Second refresh fails on one category; the first set must survive.
	upstream.failFirstAid.Store(true)
	err := svc.DownloadEssentialResources(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrDownloadFailed))

	got, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGetCachedResourcesFiltersByCategory(t *testing.T) {
	upstream := newListingUpstream(t)
	svc, _ := newTestService(t, upstream.server.URL)

	require.NoError(t, svc.DownloadEssentialResources(context.Background()))

	all, err := svc.GetCachedResources("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	firstAid, err := svc.GetCachedResources(resources.CategoryFirstAid)
	require.NoError(t, err)
	require.Len(t, firstAid, 1)
	assert.Equal(t, "fa-1", firstAid[0].ID)
}

func TestSearchCachedResources(t *testing.T) {
	upstream := newListingUpstream(t)
	svc, _ := newTestService(t, upstream.server.URL)

	require.NoError(t, svc.DownloadEssentialResources(context.Background()))

	matches, err := svc.SearchCachedResources("cpr")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "fa-1", matches[0].ID)
}

func TestClearOfflineCache(t *testing.T) {
	upstream := newListingUpstream(t)
	svc, store := newTestService(t, upstream.server.URL)

	require.NoError(t, svc.DownloadEssentialResources(context.Background()))
	require.NoError(t, svc.ClearOfflineCache())

	got, err := store.GetAll()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, svc.GetStorageStats().ResourceCount)
}
