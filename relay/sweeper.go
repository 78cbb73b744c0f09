package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultClientTimeout   = 30 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
)

/* Sweeper evicts stale client registrations on a fixed interval,
 * independent of any single request
 */
type Sweeper struct {
	registry   Registry
	queue      Queue
	correlator Correlator
	interval   time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewSweeper creates a sweeper for the backend's registry
func NewSweeper(backend Backend, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Sweeper{
		registry:   backend.Registry(),
		queue:      backend.Queue(),
		correlator: backend.Correlator(),
		interval:   interval,
		now:        time.Now,
		logger:     logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps every interval until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

/* SweepOnce runs a single sweep iteration
 * Evicted clients lose their queue and their pending waiters fail at once.
 * Failures are logged and never stop the timer
 */
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.registry.Sweep(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
		return 0
	}
	for _, key := range removed {
		if err := s.queue.Drop(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("client", key.String()).Msg("failed to drop queue of stale client")
		}
		if err := s.correlator.FailOwner(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("client", key.String()).Msg("failed to release waiters of stale client")
		}
	}
	if len(removed) > 0 {
		s.logger.Info().Int("count", len(removed)).Msg("evicted stale clients")
	}
	return len(removed)
}
