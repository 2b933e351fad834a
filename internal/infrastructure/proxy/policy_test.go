package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

func doRequest(w *Worker, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, req)
	return rec
}

func TestAPIListingNetworkFirstAndCached(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)

	url := config.ResourceListingPath + "?category=emergency"
	rec := doRequest(w, http.MethodGet, url, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(FallbackHeader))

	// The live response was admitted, keyed by the full request URI.
	entry, ok := w.store.Get(config.DynamicCacheName(), url)
	require.True(t, ok)
	assert.Equal(t, rec.Body.Bytes(), entry.Body)
}

func TestAPIListingServesStaleCacheWhenUpstreamDies(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)

	url := config.ResourceListingPath + "?category=first-aid"
	live := doRequest(w, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, live.Code)

	upstream.server.Close()

	stale := doRequest(w, http.MethodGet, url, nil)
	assert.Equal(t, http.StatusOK, stale.Code)
	assert.Equal(t, FallbackStaleCache, stale.Header().Get(FallbackHeader))
	assert.Equal(t, live.Body.Bytes(), stale.Body.Bytes())
}

func TestAPIListingSynthesizesEmergencyFloor(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)
	upstream.server.Close()

	rec := doRequest(w, http.MethodGet, config.ResourceListingPath+"?category=emergency", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, FallbackSynthetic, rec.Header().Get(FallbackHeader))

	var floor []resources.MedicalResource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &floor))
	require.Len(t, floor, 3)
	assert.Contains(t, floor[0].Title, "911")
	for _, r := range floor {
		assert.Equal(t, 1, r.Priority)
	}
}

func TestAPIFallbacksNeverAnswerNonGET(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)

	url := config.ResourceListingPath + "?category=emergency"
	live := doRequest(w, http.MethodGet, url, nil)
	require.Equal(t, http.StatusOK, live.Code)

	upstream.server.Close()

	// A failed POST to the listing path must not replay the cached GET
	// body or the synthesized floor.
	rec := doRequest(w, http.MethodPost, url, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEqual(t, live.Body.Bytes(), rec.Body.Bytes())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["offline"])
}

func TestAPIOfflineErrorForNonResourceEndpoints(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)
	upstream.server.Close()

	rec := doRequest(w, http.MethodGet, "/api/user/profile", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["offline"])
}

func TestNavigationServesCachedShell(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)

	require.NoError(t, w.Install("v1"))
	require.NoError(t, w.Activate("v1"))
	upstream.server.Close()

	header := http.Header{"Accept": []string{"text/html"}}
	rec := doRequest(w, http.MethodGet, "/some/deep/route", header)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, FallbackShell, rec.Header().Get(FallbackHeader))
	assert.Contains(t, rec.Body.String(), "app shell")
}

func TestNavigationOfflinePageWithoutShell(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)
	upstream.server.Close()

	rec := doRequest(w, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, FallbackPage, rec.Header().Get(FallbackHeader))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	// Even fully degraded, the page must surface the emergency number.
	assert.Contains(t, rec.Body.String(), "911")
}

func TestAssetCacheFirst(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)

	require.NoError(t, w.Install("v1"))
	require.NoError(t, w.Activate("v1"))

	before := upstream.hits.Load()
	rec := doRequest(w, http.MethodGet, "/assets/main.js", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")
	// Served from cache without touching the network.
	assert.Equal(t, before, upstream.hits.Load())
}

func TestAssetMissFetchesAndCaches(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)

	rec := doRequest(w, http.MethodGet, "/assets/extra.js", http.Header{"Accept": []string{"*/*"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := w.store.Get(config.StaticCacheName(), "/assets/extra.js")
	assert.True(t, ok)
}

func TestAssetUnavailableOffline(t *testing.T) {
	upstream := newTestUpstream(t)
	w := newTestWorker(t, upstream.server.URL)
	upstream.server.Close()

	rec := doRequest(w, http.MethodGet, "/assets/missing.js", http.Header{"Accept": []string{"*/*"}})
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}
