package metrics

import (
	"context"
	"time"

	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/storage"
)

// StatsSource reports layout row counts
type StatsSource interface {
	Stats(ctx context.Context) (storage.Stats, error)
}

// Collector refreshes the inventory gauges from the store
type Collector struct {
	source   StatsSource
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StatsSource, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer close(c.doneCh)
		defer ticker.Stop()

		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector and waits for the loop to exit
func (c *Collector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	stats, err := c.source.Stats(ctx)
	if err != nil {
		logger := log.WithComponent("collector")
		logger.Warn().Err(err).Msg("Failed to collect layout stats")
		return
	}

	ScopesTotal.Set(float64(stats.Scopes))
	PagesTotal.Set(float64(stats.Pages))
	PlacementsTotal.Set(float64(stats.Placements))
}
