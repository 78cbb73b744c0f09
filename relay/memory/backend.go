// Package memory keeps the relay's shared structures in process.
// It serves single-instance deployments and tests.
package memory

import (
	"context"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
)

type Backend struct {
	registry   *Registry
	queue      *Queue
	correlator *Correlator
}

// NewBackend creates an in-process backend
func NewBackend(clientTimeout time.Duration, maxQueueDepth int) *Backend {
	return &Backend{
		registry:   NewRegistry(clientTimeout),
		queue:      NewQueue(maxQueueDepth),
		correlator: NewCorrelator(),
	}
}

func (b *Backend) Registry() relay.Registry     { return b.registry }
func (b *Backend) Queue() relay.Queue           { return b.queue }
func (b *Backend) Correlator() relay.Correlator { return b.correlator }

// Close is a no-op, nothing is held outside the process
func (b *Backend) Close(ctx context.Context) error {
	return nil
}
