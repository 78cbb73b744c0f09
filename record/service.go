package record

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultListLimit = 50

// UseCase defines the operations on completed-request records
type UseCase interface {
	Save(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, apiKey string, limit int) ([]Record, error)
}

type Service struct {
	Repo     Repository
	Notifier Notifier
	logger   zerolog.Logger
}

// NewService creates a record service; notifier may be nil
func NewService(repo Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		Repo:     repo,
		Notifier: notifier,
		logger:   logger.With().Str("component", "records").Logger(),
	}
}

/* Save persists rec and then notifies subscribers
 * A failed notification is logged, the record is already durable
 */
func (s *Service) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	if err := s.Repo.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("inserting record: %w", err)
	}

	if s.Notifier != nil {
		if err := s.Notifier.Publish(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("failed to publish record notification")
		}
	}
	return rec, nil
}

// List returns the most recent records of apiKey
func (s *Service) List(ctx context.Context, apiKey string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultListLimit
	}
	recs, err := s.Repo.ListByAPIKey(ctx, apiKey, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return recs, nil
}
