package memory

import (
	"context"
	"sort"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/puzpuzpuz/xsync/v4"
)

/* Registry is an in-process relay.Registry
 * Entries live in an xsync.Map so heartbeats from many pollers never
 * contend on a single lock
 */
type Registry struct {
	clients *xsync.Map[relay.ClientKey, relay.Registration]
	timeout time.Duration
	now     func() time.Time
}

// NewRegistry creates a registry whose entries go stale after timeout
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = relay.DefaultClientTimeout
	}
	return &Registry{
		clients: xsync.NewMap[relay.ClientKey, relay.Registration](),
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Register upserts the client with lastSeenAt = now
func (r *Registry) Register(ctx context.Context, key relay.ClientKey) error {
	r.clients.Store(key, relay.Registration{Key: key, LastSeenAt: r.now()})
	return nil
}

// Heartbeat is Register under another name, called on every poll
func (r *Registry) Heartbeat(ctx context.Context, key relay.ClientKey) error {
	return r.Register(ctx, key)
}

// IsLive reports whether key exists and was seen within the timeout
func (r *Registry) IsLive(ctx context.Context, key relay.ClientKey) (bool, error) {
	reg, ok := r.clients.Load(key)
	if !ok {
		return false, nil
	}
	return reg.IsLive(r.now(), r.timeout), nil
}

// Sweep removes every stale entry
func (r *Registry) Sweep(ctx context.Context, now time.Time) ([]relay.ClientKey, error) {
	var stale []relay.ClientKey
	r.clients.Range(func(key relay.ClientKey, reg relay.Registration) bool {
		if !reg.IsLive(now, r.timeout) {
			stale = append(stale, key)
		}
		return true
	})

	removed := make([]relay.ClientKey, 0, len(stale))
	for _, key := range stale {
		// Re-check under the map's bucket lock, a heartbeat may have landed since Range
		deleted := false
		r.clients.Compute(key, func(old relay.Registration, loaded bool) (relay.Registration, xsync.ComputeOp) {
			if loaded && !old.IsLive(now, r.timeout) {
				deleted = true
				return old, xsync.DeleteOp
			}
			return old, xsync.CancelOp
		})
		if deleted {
			removed = append(removed, key)
		}
	}
	return removed, nil
}

// Unregister removes key immediately
func (r *Registry) Unregister(ctx context.Context, key relay.ClientKey) error {
	r.clients.Delete(key)
	return nil
}

// List returns the live registrations of apiKey, most recently seen first
func (r *Registry) List(ctx context.Context, apiKey string) ([]relay.Registration, error) {
	now := r.now()
	var regs []relay.Registration
	r.clients.Range(func(key relay.ClientKey, reg relay.Registration) bool {
		if key.APIKey == apiKey && reg.IsLive(now, r.timeout) {
			regs = append(regs, reg)
		}
		return true
	})
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].LastSeenAt.After(regs[j].LastSeenAt)
	})
	return regs, nil
}

// Len returns the number of registrations, live or not
func (r *Registry) Len() int {
	return r.clients.Size()
}
