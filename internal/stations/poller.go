package stations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sharecycle-console/internal/common/logger"
)

// Poller reloads the station read models on a fixed interval. It does
// not retry failed loads early; the next tick reconciles.
type Poller struct {
	consumer *Consumer
	interval time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewPoller(consumer *Consumer, interval time.Duration, log logger.Logger) *Poller {
	return &Poller{consumer: consumer, interval: interval, logger: log}
}

// Start blocks until ctx is cancelled, reloading stations (and the
// selected station's details, when one is selected) every interval.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	p.logger.Info("Starting station poller", "interval", p.interval)

	// Initial load
	p.reload(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Station poller stopped")
			return nil
		case <-ticker.C:
			p.reload(ctx)
		}
	}
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.running = false
}

func (p *Poller) reload(ctx context.Context) {
	if err := p.consumer.LoadStations(ctx); err != nil {
		p.logger.Debug("Scheduled station reload failed", "error", err)
	}
	p.consumer.mu.Lock()
	selected := p.consumer.selectedID
	p.consumer.mu.Unlock()
	if selected != "" {
		if err := p.consumer.LoadStationDetails(ctx, selected); err != nil {
			p.logger.Debug("Scheduled details reload failed", "station", selected, "error", err)
		}
	}
}
