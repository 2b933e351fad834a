// Package handlers provides HTTP request handlers for the gateway API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medicarepro/medicare-offline-go/internal/application/services"
	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
)

// OfflineHandlers serves the offline coordinator's API surface.
type OfflineHandlers struct {
	offlineService *services.OfflineService
	logger         *logging.ChanneledLogger
}

// NewOfflineHandlers creates new offline handlers
func NewOfflineHandlers(offlineService *services.OfflineService, logger *logging.ChanneledLogger) *OfflineHandlers {
	return &OfflineHandlers{
		offlineService: offlineService,
		logger:         logger,
	}
}

// Download handles POST /api/v1/offline/download. It refreshes the
// content store from upstream and pre-warms the byte cache.
func (h *OfflineHandlers) Download(c *gin.Context) {
	if err := h.offlineService.DownloadEssentialResources(c.Request.Context()); err != nil {
		h.logger.Sync().Error("Essential resource download failed", "error", err.Error())
		status := http.StatusBadGateway
		if errors.Is(err, resources.ErrStorageUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	stats := h.offlineService.GetStorageStats()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"resourceCount": stats.ResourceCount,
	})
}

// GetResources handles GET /api/v1/offline/resources?category=...
func (h *OfflineHandlers) GetResources(c *gin.Context) {
	category := c.Query("category")

	rows, err := h.offlineService.GetCachedResources(category)
	if err != nil {
		h.logger.Store().Error("Failed to read cached resources", "category", category, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read cached resources"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Search handles GET /api/v1/offline/search?q=...
func (h *OfflineHandlers) Search(c *gin.Context) {
	query := c.Query("q")

	rows, err := h.offlineService.SearchCachedResources(query)
	if err != nil {
		h.logger.Store().Error("Resource search failed", "query", query, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Status handles GET /api/v1/offline/status. It combines connectivity
// with storage usage so the front-end can render one offline banner.
func (h *OfflineHandlers) Status(c *gin.Context) {
	stats := h.offlineService.GetStorageStats()

	c.JSON(http.StatusOK, gin.H{
		"offline":       h.offlineService.IsOffline(),
		"resourceCount": stats.ResourceCount,
		"approxBytes":   stats.ApproxBytes,
		"lastUpdated":   stats.LastUpdated,
	})
}
