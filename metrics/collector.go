package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/tunnel"
)

// RelayCollector implements Collector over any relay backend
type RelayCollector struct {
	backend relay.Backend
	tunnels *tunnel.Loader
}

// NewRelayCollector creates a collector; live clients are counted per known tunnel
func NewRelayCollector(backend relay.Backend, tunnels *tunnel.Loader) *RelayCollector {
	return &RelayCollector{
		backend: backend,
		tunnels: tunnels,
	}
}

// Collect gathers all metrics from the backend
func (c *RelayCollector) Collect(ctx context.Context) (Metrics, error) {
	depths, err := c.GetQueueDepths(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting queue depths: %w", err)
	}

	clients, err := c.GetLiveClients(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting live clients: %w", err)
	}

	pending, err := c.GetPendingCorrelations(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting pending correlations: %w", err)
	}

	return Metrics{
		QueueDepths:         depths,
		LiveClients:         clients,
		PendingCorrelations: pending,
		Timestamp:           time.Now(),
	}, nil
}

func (c *RelayCollector) GetQueueDepths(ctx context.Context) (map[string]int64, error) {
	depths, err := c.backend.Queue().Depths(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading queue depths: %w", err)
	}
	return depths, nil
}

// GetLiveClients counts live clients of every known tunnel, skipping tunnels that fail
func (c *RelayCollector) GetLiveClients(ctx context.Context) (map[string]int64, error) {
	clients := make(map[string]int64)
	if c.tunnels == nil {
		return clients, nil
	}

	for _, t := range c.tunnels.List() {
		regs, err := c.backend.Registry().List(ctx, t.APIKey)
		if err != nil {
			continue
		}
		clients[t.Name] += int64(len(regs))
	}
	return clients, nil
}

func (c *RelayCollector) GetPendingCorrelations(ctx context.Context) (int64, error) {
	pending, err := c.backend.Correlator().Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting pending correlations: %w", err)
	}
	return pending, nil
}
