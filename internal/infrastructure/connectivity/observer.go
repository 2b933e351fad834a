// Package connectivity tracks online/offline transitions by probing the
// upstream content API. Consumers read the point-in-time state; the
// offline-to-online transition fires the deferred re-sync trigger.
package connectivity

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/medicarepro/medicare-offline-go/internal/infrastructure/observability/logging"
	"github.com/medicarepro/medicare-offline-go/pkg/config"
)

// Observer probes the upstream at a fixed interval and exposes the
// current connectivity state.
type Observer struct {
	probeURL string
	interval time.Duration
	client   *http.Client
	logger   *logging.ChanneledLogger

	online atomic.Bool

	// onReconnect fires on each offline-to-online transition.
	onReconnect func()
}

// NewObserver creates an observer for the given upstream base URL.
// onReconnect may be nil.
func NewObserver(upstreamBase string, onReconnect func(), logger *logging.ChanneledLogger) (*Observer, error) {
	probe, err := url.JoinPath(upstreamBase, config.ProbePath)
	if err != nil {
		return nil, err
	}

	o := &Observer{
		probeURL:    probe,
		interval:    config.ProbeInterval,
		client:      &http.Client{Timeout: 5 * time.Second},
		logger:      logger,
		onReconnect: onReconnect,
	}
	// Optimistic until the first probe says otherwise.
	o.online.Store(true)
	return o, nil
}

// IsOffline reports the connectivity state at call time. Point-in-time,
// not a subscription.
func (o *Observer) IsOffline() bool {
	return !o.online.Load()
}

// Start begins the probe routine. Blocks until ctx is cancelled.
func (o *Observer) Start(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.logger.System().Info("Connectivity observer started", "probeURL", o.probeURL, "interval", o.interval)

	o.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			o.logger.System().Info("Connectivity observer stopping")
			return
		case <-ticker.C:
			o.probe(ctx)
		}
	}
}

func (o *Observer) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, o.probeURL, nil)
	if err != nil {
		return
	}

	resp, err := o.client.Do(req)
	nowOnline := err == nil
	if resp != nil {
		resp.Body.Close()
	}

	wasOnline := o.online.Swap(nowOnline)
	if wasOnline == nowOnline {
		return
	}

	if nowOnline {
		o.logger.System().Info("Connectivity restored, scheduling sync")
		if o.onReconnect != nil {
			o.onReconnect()
		}
	} else {
		o.logger.Alert().Warn("Connectivity lost, serving from offline cache")
	}
}
