// Package redis keeps the relay's shared structures in Redis so several
// relay instances can serve the same clients.
//
// Key layout:
//
//	relay:clients:{api_key}            hash   client_id -> last seen (unix ms)
//	relay:queue:{api_key}:{client_id}  list   JSON pending requests, FIFO
//	relay:queues                       set    client keys with a queue
//	relay:waiter:{request_id}          string owning client key, with TTL
//	relay:response:{request_id}        list   JSON pending response, with TTL
//	relay:owner:{api_key}:{client_id}  set    request ids awaiting the client
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/redis/go-redis/v9"
)

const (
	clientsPrefix  = "relay:clients"
	queuePrefix    = "relay:queue"
	queuesSet      = "relay:queues"
	waiterPrefix   = "relay:waiter"
	responsePrefix = "relay:response"
	ownerPrefix    = "relay:owner"
)

// Options configures a Backend
type Options struct {
	ClientTimeout time.Duration
	MaxQueueDepth int
	// ResponseTTL bounds how long correlation keys outlive their waiter
	ResponseTTL time.Duration
}

type Backend struct {
	client     *redis.Client
	registry   *Registry
	queue      *Queue
	correlator *Correlator
}

// NewClient connects to Redis and verifies the connection
func NewClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		// Blocking pops must give up when the inbound request goes away
		ContextTimeoutEnabled: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}
	return client, nil
}

// NewBackend creates a Redis-backed relay backend over client
func NewBackend(client *redis.Client, opts Options) *Backend {
	if opts.ClientTimeout <= 0 {
		opts.ClientTimeout = relay.DefaultClientTimeout
	}
	if opts.ResponseTTL <= 0 {
		opts.ResponseTTL = 2 * relay.DefaultRequestTimeout
	}
	return &Backend{
		client:     client,
		registry:   NewRegistry(client, opts.ClientTimeout),
		queue:      NewQueue(client, opts.MaxQueueDepth),
		correlator: NewCorrelator(client, opts.ResponseTTL),
	}
}

func (b *Backend) Registry() relay.Registry     { return b.registry }
func (b *Backend) Queue() relay.Queue           { return b.queue }
func (b *Backend) Correlator() relay.Correlator { return b.correlator }

// Client returns the underlying Redis client, shared with the record notifier
func (b *Backend) Client() *redis.Client {
	return b.client
}

// Close closes the Redis connection
func (b *Backend) Close(ctx context.Context) error {
	return b.client.Close()
}

// blockSlice is the longest single BLPOP, so cancellation is noticed promptly
const blockSlice = time.Second

/* blpopUntil pops key, blocking until deadline in slices of blockSlice
 * ok is false once the deadline passed without an element
 */
func blpopUntil(ctx context.Context, client *redis.Client, key string, deadline time.Time) (string, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if time.Until(deadline) <= 0 {
			return "", false, nil
		}

		res, err := client.BLPop(ctx, blockSlice, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			return "", false, err
		}
		// BLPOP answers with [key, value]
		if len(res) != 2 {
			return "", false, fmt.Errorf("unexpected BLPOP reply of %d elements", len(res))
		}
		return res[1], true, nil
	}
}
