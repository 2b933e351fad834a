// Package startup prepares the offline gateway
package startup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicarepro/medicare-offline-go/internal/application/container"
	"github.com/medicarepro/medicare-offline-go/internal/domain/entities/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/security"
	"github.com/medicarepro/medicare-offline-go/internal/presentation/http/server"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// Initialize performs the complete gateway startup sequence and blocks
// until a shutdown signal arrives.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("MediCare Pro offline gateway starting...")

	// Step 1: Channeled logging
	logConfig := logging.DefaultLoggerConfig()
	logConfig.LogDirectory = config.LogDirectory
	if config.VerboseProxy {
		logConfig.ChannelLevels[logging.ChannelProxy] = slog.LevelDebug
		logConfig.ChannelLevels[logging.ChannelCache] = slog.LevelDebug
	}
	logger, err := logging.NewChanneledLogger(logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Close()

	if config.JWTSecret == "" {
		secret, err := security.GenerateSecureKey(64)
		if err != nil {
			return fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		config.JWTSecret = secret
		logger.Startup().Warn("JWT_SECRET not set, operator tokens will not survive restarts")
	}

	// Step 2: Dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(logger)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer appContainer.Close()

	// Step 3: Content store. A broken store degrades reads to empty
	// results instead of killing the gateway.
	logger.Startup().Info("Initializing content store...")
	if err := appContainer.Store.Initialize(); err != nil {
		if errors.Is(err, resources.ErrStorageUnavailable) {
			logger.Startup().Warn("Content store unavailable, running degraded", "error", err.Error())
		} else {
			return fmt.Errorf("content store initialization failed: %w", err)
		}
	}

	// Step 4: Install and activate the cache generation. An install
	// failure is fatal only when no previous generation can serve.
	logger.Startup().Info("Installing cache generation", "version", config.CacheVersion)
	installStart := time.Now()
	if err := appContainer.Worker.Install(config.CacheVersion); err != nil {
		existing, _ := appContainer.Generations.Generations()
		if len(existing) == 0 {
			logger.Startup().Warn("Cache install failed with no prior generation, shell unavailable offline", "error", err.Error())
		} else {
			logger.Startup().Warn("Cache install failed, previous generation keeps serving", "error", err.Error())
		}
	} else {
		if err := appContainer.Worker.Activate(config.CacheVersion); err != nil {
			logger.Startup().Error("Cache activation failed", "error", err.Error())
		} else {
			logger.Startup().Info("Cache generation active",
				"version", config.CacheVersion,
				"duration", time.Since(installStart).String())
		}
	}

	// Step 5: Background workers
	logger.Startup().Info("Starting interception worker and connectivity observer...")
	go appContainer.Worker.Run(ctx)
	go appContainer.Observer.Start(ctx)

	// Step 6: HTTP server
	logger.Startup().Info("Starting HTTP server...")
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Gateway startup complete",
		"totalDuration", time.Since(start).String(),
		"port", config.Port,
		"upstream", config.UpstreamBaseURL)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Gateway shutdown complete",
		"totalUptime", time.Since(start).String(),
		"shutdownDuration", time.Since(shutdownStart).String())

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
