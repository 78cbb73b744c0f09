package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/redis/go-redis/v9"
)

// sweepScript deletes a client field only if it is still at or before the cutoff
var sweepScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if v and tonumber(v) <= tonumber(ARGV[2]) then
	return redis.call('HDEL', KEYS[1], ARGV[1])
end
return 0
`)

/* Registry stores heartbeats in one hash per API key
 * The hash expires on its own once every client of the key went quiet
 */
type Registry struct {
	client  *redis.Client
	timeout time.Duration
	now     func() time.Time
}

// NewRegistry creates a Redis registry
func NewRegistry(client *redis.Client, timeout time.Duration) *Registry {
	return &Registry{
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Register upserts the client's heartbeat
func (r *Registry) Register(ctx context.Context, key relay.ClientKey) error {
	hashKey := clientsKey(key.APIKey)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, key.ClientID, r.now().UnixMilli())
	pipe.Expire(ctx, hashKey, 2*r.timeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing heartbeat: %w", err)
	}
	return nil
}

// Heartbeat refreshes the client's heartbeat
func (r *Registry) Heartbeat(ctx context.Context, key relay.ClientKey) error {
	return r.Register(ctx, key)
}

// IsLive reports whether the client was seen within the timeout
func (r *Registry) IsLive(ctx context.Context, key relay.ClientKey) (bool, error) {
	ms, err := r.client.HGet(ctx, clientsKey(key.APIKey), key.ClientID).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting heartbeat: %w", err)
	}
	reg := relay.Registration{Key: key, LastSeenAt: time.UnixMilli(ms)}
	return reg.IsLive(r.now(), r.timeout), nil
}

// Sweep removes stale clients across every API key
func (r *Registry) Sweep(ctx context.Context, now time.Time) ([]relay.ClientKey, error) {
	cutoff := now.Add(-r.timeout).UnixMilli()
	var removed []relay.ClientKey

	var cursor uint64
	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, clientsPrefix+":*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scanning client keys: %w", err)
		}

		for _, hashKey := range keys {
			apiKey := strings.TrimPrefix(hashKey, clientsPrefix+":")
			fields, err := r.client.HGetAll(ctx, hashKey).Result()
			if err != nil {
				return removed, fmt.Errorf("getting clients of %s: %w", apiKey, err)
			}
			for clientID, seen := range fields {
				ms, err := strconv.ParseInt(seen, 10, 64)
				if err != nil || ms > cutoff {
					continue
				}
				n, err := sweepScript.Run(ctx, r.client, []string{hashKey}, clientID, cutoff).Int()
				if err != nil {
					return removed, fmt.Errorf("removing stale client: %w", err)
				}
				if n > 0 {
					removed = append(removed, relay.ClientKey{APIKey: apiKey, ClientID: clientID})
				}
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

// Unregister removes the client immediately
func (r *Registry) Unregister(ctx context.Context, key relay.ClientKey) error {
	if err := r.client.HDel(ctx, clientsKey(key.APIKey), key.ClientID).Err(); err != nil {
		return fmt.Errorf("removing client: %w", err)
	}
	return nil
}

// List returns the live clients of apiKey, most recently seen first
func (r *Registry) List(ctx context.Context, apiKey string) ([]relay.Registration, error) {
	fields, err := r.client.HGetAll(ctx, clientsKey(apiKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting clients: %w", err)
	}

	now := r.now()
	regs := make([]relay.Registration, 0, len(fields))
	for clientID, seen := range fields {
		ms, err := strconv.ParseInt(seen, 10, 64)
		if err != nil {
			continue
		}
		reg := relay.Registration{
			Key:        relay.ClientKey{APIKey: apiKey, ClientID: clientID},
			LastSeenAt: time.UnixMilli(ms),
		}
		if reg.IsLive(now, r.timeout) {
			regs = append(regs, reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].LastSeenAt.After(regs[j].LastSeenAt)
	})
	return regs, nil
}

func clientsKey(apiKey string) string {
	return fmt.Sprintf("%s:%s", clientsPrefix, apiKey)
}
