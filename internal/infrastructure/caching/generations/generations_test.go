package generations

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToConsole = false
	cfg.LogDirectory = t.TempDir()
	cfg.DefaultLevel = slog.LevelError

	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)

	store, err := Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		logger.Close()
	})
	return store
}

func okEntry(body string) *Entry {
	return &Entry{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(body),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("medicare-static-v1", "/", okEntry("<html>shell</html>")))

	got, ok := store.Get("medicare-static-v1", "/")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, []byte("<html>shell</html>"), got.Body)
	assert.False(t, got.StoredAt.IsZero())
}

func TestPutRefusesNonSuccessStatus(t *testing.T) {
	store := newTestStore(t)

	err := store.Put("medicare-offline-v1", "/api/medical-resources", &Entry{Status: http.StatusBadGateway})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrCacheWriteFailed))

	_, ok := store.Get("medicare-offline-v1", "/api/medical-resources")
	assert.False(t, ok)
}

func TestGetMiss(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.Get("medicare-static-v1", "/never-stored")
	assert.False(t, ok)
}

func TestEntriesAreIsolatedByGeneration(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("medicare-static-v1", "/", okEntry("v1")))
	require.NoError(t, store.Put("medicare-static-v2", "/", okEntry("v2")))

	v1, ok := store.Get("medicare-static-v1", "/")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v1.Body)

	v2, ok := store.Get("medicare-static-v2", "/")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), v2.Body)
}

func TestDeleteGenerationLeavesOthersIntact(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("medicare-static-v1", "/", okEntry("old")))
	require.NoError(t, store.Put("medicare-static-v1", "/assets/main.js", okEntry("old js")))
	require.NoError(t, store.Put("medicare-static-v2", "/", okEntry("new")))

	require.NoError(t, store.DeleteGeneration("medicare-static-v1"))

	_, ok := store.Get("medicare-static-v1", "/")
	assert.False(t, ok)
	_, ok = store.Get("medicare-static-v1", "/assets/main.js")
	assert.False(t, ok)

	kept, ok := store.Get("medicare-static-v2", "/")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), kept.Body)
}

func TestGenerationsListsDistinctNames(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("medicare-static-v1", "/", okEntry("a")))
	require.NoError(t, store.Put("medicare-static-v1", "/offline-resources", okEntry("b")))
	require.NoError(t, store.Put("medicare-offline-v1", "/api/medical-resources?category=emergency", okEntry("[]")))

	names, err := store.Generations()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"medicare-static-v1", "medicare-offline-v1"}, names)
}

func TestStatsCountsEntriesAndBytes(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("medicare-offline-v1", "/a", okEntry("one")))
	require.NoError(t, store.Put("medicare-offline-v1", "/b", okEntry("two")))

	count, size := store.Stats("medicare-offline-v1")
	assert.Equal(t, 2, count)
	assert.Greater(t, size, int64(0))

	count, size = store.Stats("medicare-offline-v2")
	assert.Zero(t, count)
	assert.Zero(t, size)
}
