package messaging

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/caching/generations"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
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

func newBridgeFixture(t *testing.T) (*Bridge, *proxy.Worker, *generations.Store) {
	t.Helper()
	logger := newTestLogger(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(upstream.Close)

	genStore, err := generations.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { genStore.Close() })

	worker, err := proxy.NewWorker(genStore, config.DefaultManifest(), upstream.URL, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go worker.Run(ctx)

	return NewBridge(worker, logger), worker, genStore
}

func dialBridge(t *testing.T, bridge *Bridge) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(bridge.HandleConnection))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBridgeAnswersCacheStatus(t *testing.T) {
	bridge, _, _ := newBridgeFixture(t)
	conn := dialBridge(t, bridge)

	require.NoError(t, conn.WriteJSON(Envelope{Type: TypeGetCacheStatus}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply Envelope
	require.NoError(t, conn.ReadJSON(&reply))

	assert.Equal(t, TypeCacheStatus, reply.Type)
	require.NotNil(t, reply.IsOfflineReady)
	require.NotNil(t, reply.CacheSize)
	// Nothing installed yet.
	assert.False(t, *reply.IsOfflineReady)
}

func TestBridgeForwardsCacheRequests(t *testing.T) {
	bridge, _, genStore := newBridgeFixture(t)
	conn := dialBridge(t, bridge)

	url := config.ResourceListingPath + "?category=emergency"
	require.NoError(t, conn.WriteJSON(Envelope{
		Type: TypeCacheMedicalResources,
		URLs: []string{url},
	}))

	require.Eventually(t, func() bool {
		_, ok := genStore.Get(config.DynamicCacheName(), url)
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestBridgeIgnoresUnknownMessages(t *testing.T) {
	bridge, worker, _ := newBridgeFixture(t)
	conn := dialBridge(t, bridge)

	require.NoError(t, conn.WriteJSON(Envelope{Type: "SOMETHING_ELSE"}))

	// The connection stays usable after an unknown message.
	require.NoError(t, conn.WriteJSON(Envelope{Type: TypeGetCacheStatus}))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var reply Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeCacheStatus, reply.Type)

	// Worker still responsive on the direct path too.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := worker.Status(ctx)
	assert.NoError(t, err)
}
