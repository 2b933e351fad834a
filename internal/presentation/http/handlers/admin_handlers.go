package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medicarepro/medicare-offline-go/internal/application/container"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/security"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// AdminHandlers serves the operator control plane.
type AdminHandlers struct {
	container *container.Container
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(container *container.Container) *AdminHandlers {
	return &AdminHandlers{
		container: container,
	}
}

// AuthCheck reports whether an operator password is configured and
// whether the presented token is valid.
func (h *AdminHandlers) AuthCheck(c *gin.Context) {
	response := gin.H{
		"passwordRequired": config.OperatorPasswordHash != "",
		"authenticated":    config.OperatorPasswordHash == "",
	}

	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		if claims, err := security.ValidateJWT(authHeader[7:], config.JWTSecret); err == nil && security.IsOperatorClaims(claims) {
			response["authenticated"] = true
		}
	}

	c.JSON(http.StatusOK, response)
}

// Login handles operator authentication
func (h *AdminHandlers) Login(c *gin.Context) {
	var request struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if config.OperatorPasswordHash == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "token": "no-auth-required"})
		return
	}

	if err := security.CheckOperatorPassword(request.Password, config.OperatorPasswordHash); err != nil {
		h.container.Logger.Auth().Warn("Operator login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, err := security.GenerateOperatorToken(config.JWTSecret)
	if err != nil {
		h.container.Logger.Auth().Error("Failed to sign operator token", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// TriggerSync handles POST /api/v1/admin/sync by queueing a background
// sync pass on the interception worker.
func (h *AdminHandlers) TriggerSync(c *gin.Context) {
	h.container.Worker.TriggerSync(config.SyncTag)
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "tag": config.SyncTag})
}

// CacheStatus handles GET /api/v1/admin/cache
func (h *AdminHandlers) CacheStatus(c *gin.Context) {
	status, err := h.container.Worker.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Worker did not respond"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// ClearCache handles DELETE /api/v1/admin/cache
func (h *AdminHandlers) ClearCache(c *gin.Context) {
	if err := h.container.OfflineService.ClearOfflineCache(); err != nil {
		h.container.Logger.Cache().Error("Cache clear failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetLogLevels returns current log levels for all channels.
func (h *AdminHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.container.Logger.GetChannelLevels())
}

// SetLogLevel sets the log level for a specific channel.
func (h *AdminHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var level slog.Level
	switch req.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log level specified"})
		return
	}

	if err := h.container.Logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "channel": req.Channel, "level": req.Level})
}
