// Package messaging bridges application contexts to the interception
// worker. The two contexts share no memory; they exchange typed JSON
// messages over a WebSocket, mirroring the worker's command channel.
package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/proxy"
)

// Message types of the cross-context contract.
const (
	TypeCacheMedicalResources = "CACHE_MEDICAL_RESOURCES"
	TypeGetCacheStatus        = "GET_CACHE_STATUS"
	TypeCacheStatus           = "CACHE_STATUS"
)

// Envelope is one cross-context message.
type Envelope struct {
	Type string   `json:"type"`
	URLs []string `json:"urls,omitempty"`

	IsOfflineReady *bool  `json:"isOfflineReady,omitempty"`
	CacheSize      *int64 `json:"cacheSize,omitempty"`
}

// Bridge accepts WebSocket connections from application contexts and
// relays their messages to the worker.
type Bridge struct {
	worker   *proxy.Worker
	logger   *logging.ChanneledLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewBridge creates the message bridge for the given worker.
func NewBridge(worker *proxy.Worker, logger *logging.ChanneledLogger) *Bridge {
	return &Bridge{
		worker: worker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway fronts a single local application.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleConnection upgrades an HTTP request and serves the message loop
// until the peer disconnects.
func (b *Bridge) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Proxy().Warn("WebSocket upgrade failed", "error", err.Error())
		return
	}

	b.mu.Lock()
	b.clients[conn] = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg Envelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Proxy().Warn("Message bridge read failed", "error", err.Error())
			}
			return
		}

		b.dispatch(conn, &msg)
	}
}

func (b *Bridge) dispatch(conn *websocket.Conn, msg *Envelope) {
	switch msg.Type {
	case TypeCacheMedicalResources:
		if len(msg.URLs) == 0 {
			return
		}
		b.worker.CacheURLs(msg.URLs)

	case TypeGetCacheStatus:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status, err := b.worker.Status(ctx)
		if err != nil {
			b.logger.Proxy().Warn("Cache status request timed out", "error", err.Error())
			return
		}

		reply := Envelope{
			Type:           TypeCacheStatus,
			IsOfflineReady: &status.IsOfflineReady,
			CacheSize:      &status.CacheSize,
		}
		if err := conn.WriteJSON(&reply); err != nil {
			b.logger.Proxy().Warn("Cache status reply failed", "error", err.Error())
		}

	default:
		raw, _ := json.Marshal(msg)
		b.logger.Proxy().Debug("Unknown bridge message ignored", "message", string(raw))
	}
}
