package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newSweeperBackend(t *testing.T) (*mocks.Backend, *mocks.Registry, *mocks.Queue, *mocks.Correlator) {
	registry := mocks.NewRegistry(t)
	queue := mocks.NewQueue(t)
	correlator := mocks.NewCorrelator(t)
	backend := mocks.NewBackend(t)
	backend.On("Registry").Return(registry)
	backend.On("Queue").Return(queue)
	backend.On("Correlator").Return(correlator)
	return backend, registry, queue, correlator
}

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	stale := relay.ClientKey{APIKey: "k", ClientID: "c"}

	t.Run("success - drops queues and fails waiters of evicted clients", func(t *testing.T) {
		backend, registry, queue, correlator := newSweeperBackend(t)
		registry.On("Sweep", ctx, mock.AnythingOfType("time.Time")).Return([]relay.ClientKey{stale}, nil)
		queue.On("Drop", ctx, stale).Return(nil)
		correlator.On("FailOwner", ctx, stale).Return(nil)

		s := relay.NewSweeper(backend, time.Minute, zerolog.Nop())
		assert.Equal(t, 1, s.SweepOnce(ctx))
	})

	t.Run("success - waiter release failure still counts the eviction", func(t *testing.T) {
		backend, registry, queue, correlator := newSweeperBackend(t)
		registry.On("Sweep", ctx, mock.AnythingOfType("time.Time")).Return([]relay.ClientKey{stale}, nil)
		queue.On("Drop", ctx, stale).Return(nil)
		correlator.On("FailOwner", ctx, stale).Return(errors.New("redis down"))

		s := relay.NewSweeper(backend, time.Minute, zerolog.Nop())
		assert.Equal(t, 1, s.SweepOnce(ctx))
	})

	t.Run("error - failure is logged and reported as zero", func(t *testing.T) {
		backend, registry, _, _ := newSweeperBackend(t)
		registry.On("Sweep", ctx, mock.AnythingOfType("time.Time")).Return(nil, errors.New("redis down"))

		s := relay.NewSweeper(backend, time.Minute, zerolog.Nop())
		assert.Equal(t, 0, s.SweepOnce(ctx))
	})
}

func TestSweeper_Run(t *testing.T) {
	backend, registry, _, _ := newSweeperBackend(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := make(chan struct{}, 10)
	registry.On("Sweep", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(nil, errors.New("transient")).
		Run(func(mock.Arguments) { calls <- struct{}{} })

	s := relay.NewSweeper(backend, 10*time.Millisecond, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The timer keeps firing after a failed sweep
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("sweep did not run")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
