// Package memory keeps the most recent records per API key in process,
// for development runs without a database.
package memory

import (
	"context"
	"sync"

	"github.com/marcelsud/webhook-relay/record"
)

const defaultCapacity = 200

type Repository struct {
	mu       sync.RWMutex
	byKey    map[string][]record.Record
	capacity int
}

// NewRepository keeps up to capacity records per API key
func NewRepository(capacity int) *Repository {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Repository{
		byKey:    make(map[string][]record.Record),
		capacity: capacity,
	}
}

// Insert appends rec, evicting the oldest record of its key at capacity
func (r *Repository) Insert(ctx context.Context, rec record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	recs := append(r.byKey[rec.APIKey], rec)
	if len(recs) > r.capacity {
		recs = recs[len(recs)-r.capacity:]
	}
	r.byKey[rec.APIKey] = recs
	return nil
}

// ListByAPIKey returns up to limit records of apiKey, newest first
func (r *Repository) ListByAPIKey(ctx context.Context, apiKey string, limit int) ([]record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := r.byKey[apiKey]
	out := make([]record.Record, 0, min(limit, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}
