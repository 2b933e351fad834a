// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/medicarepro/medicare-offline-go/internal/application/services"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/caching/generations"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/connectivity"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/messaging"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	persistence "github.com/medicarepro/medicare-offline-go/internal/infrastructure/persistence/resources"
	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/proxy"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Logger   *logging.ChanneledLogger
	Manifest *config.Manifest

	// Infrastructure
	Store       *persistence.Store
	Generations *generations.Store
	Worker      *proxy.Worker
	Observer    *connectivity.Observer
	Bridge      *messaging.Bridge

	// Application services
	OfflineService *services.OfflineService
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	manifest, err := config.LoadManifest(config.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache manifest: %w", err)
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	genStore, err := generations.Open(filepath.Join(config.DataDir, "cache"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache generations: %w", err)
	}

	worker, err := proxy.NewWorker(genStore, manifest, config.UpstreamBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create interception worker: %w", err)
	}

	observer, err := connectivity.NewObserver(config.UpstreamBaseURL, func() {
		worker.TriggerSync(config.SyncTag)
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create connectivity observer: %w", err)
	}

	contentStore := persistence.NewStore(config.DBDriver, config.DataDir, config.DBPath, logger)

	offlineService, err := services.NewOfflineService(contentStore, worker, observer, config.UpstreamBaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create offline service: %w", err)
	}

	return &Container{
		Logger:         logger,
		Manifest:       manifest,
		Store:          contentStore,
		Generations:    genStore,
		Worker:         worker,
		Observer:       observer,
		Bridge:         messaging.NewBridge(worker, logger),
		OfflineService: offlineService,
	}, nil
}

// Close releases the container's infrastructure handles.
func (c *Container) Close() error {
	var firstErr error
	if err := c.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.Generations.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
