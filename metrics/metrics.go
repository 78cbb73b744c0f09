package metrics

import (
	"context"
	"time"
)

// Metrics is a snapshot of the relay's shared state.
type Metrics struct {
	// QueueDepths maps client key (api_key:client_id) to queued requests
	QueueDepths map[string]int64 `json:"queue_depths"`

	// LiveClients maps tunnel name to the number of live clients
	LiveClients map[string]int64 `json:"live_clients"`

	// PendingCorrelations is the number of inbound calls waiting for a response
	PendingCorrelations int64 `json:"pending_correlations"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector gathers metrics from the relay backend.
type Collector interface {
	// Collect gathers a full snapshot
	Collect(ctx context.Context) (Metrics, error)

	// GetQueueDepths returns the number of queued requests per client
	GetQueueDepths(ctx context.Context) (map[string]int64, error)

	// GetLiveClients returns the number of live clients per tunnel
	GetLiveClients(ctx context.Context) (map[string]int64, error)

	// GetPendingCorrelations returns the number of reserved correlation slots
	GetPendingCorrelations(ctx context.Context) (int64, error)
}
