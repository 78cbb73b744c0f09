package record

import (
	"context"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"
)

/* AsyncSaver persists records on a bounded worker pool so the inbound
 * handler can answer its caller without waiting for storage
 */
type AsyncSaver struct {
	records UseCase
	pool    pond.Pool
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAsyncSaver creates a saver with the given number of workers
func NewAsyncSaver(records UseCase, workers int, logger zerolog.Logger) *AsyncSaver {
	if workers <= 0 {
		workers = 4
	}
	return &AsyncSaver{
		records: records,
		pool:    pond.NewPool(workers),
		timeout: 10 * time.Second,
		logger:  logger.With().Str("component", "record_saver").Logger(),
	}
}

// Submit queues rec for persistence and returns immediately
func (a *AsyncSaver) Submit(rec Record) {
	a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.records.Save(ctx, rec); err != nil {
			a.logger.Error().Err(err).Str("request_id", rec.RequestID).Msg("failed to save record")
		}
	})
}

// Stop waits for queued records to be written
func (a *AsyncSaver) Stop() {
	a.pool.StopAndWait()
}
