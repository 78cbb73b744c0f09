package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/redis/go-redis/v9"
)

// submitScript claims the waiter slot and publishes the response atomically
var submitScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[3], ARGV[4])
redis.call('RPUSH', KEYS[2], ARGV[2])
redis.call('EXPIRE', KEYS[2], ARGV[3])
return 1
`)

// releaseScript drops a request's keys and its entry in the owner index
var releaseScript = redis.NewScript(`
local owner = redis.call('GET', KEYS[1])
if owner then
	redis.call('SREM', ARGV[1] .. ':' .. owner, ARGV[2])
end
redis.call('DEL', KEYS[1], KEYS[2])
return 1
`)

/* failOwnerScript settles every waiter still held by the owner with the
 * failure marker and clears the owner index
 */
var failOwnerScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
local failed = 0
for _, id in ipairs(ids) do
	local waiter = ARGV[1] .. ':' .. id
	if redis.call('GET', waiter) == ARGV[3] then
		local response = ARGV[2] .. ':' .. id
		redis.call('DEL', waiter)
		redis.call('RPUSH', response, ARGV[4])
		redis.call('EXPIRE', response, ARGV[5])
		failed = failed + 1
	end
end
redis.call('DEL', KEYS[1])
return failed
`)

// ownerGone is pushed instead of a response when the owner disconnects
const ownerGone = "owner-gone"

/* Correlator pairs a waiter key (who may answer) with a response list
 * (the answer) per request ID
 * The inbound handler blocks on BLPOP, so it wakes as soon as the client
 * submits, even if that client talks to another relay instance
 */
type Correlator struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCorrelator creates a Redis correlator whose keys expire after ttl
func NewCorrelator(client *redis.Client, ttl time.Duration) *Correlator {
	return &Correlator{client: client, ttl: ttl}
}

// Expect reserves the waiter slot for requestID and indexes it under owner
func (c *Correlator) Expect(ctx context.Context, requestID string, owner relay.ClientKey) error {
	ok, err := c.client.SetNX(ctx, waiterKey(requestID), owner.String(), c.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserving waiter: %w", err)
	}
	if !ok {
		return fmt.Errorf("request %s is already awaited", requestID)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, ownerKey(owner), requestID)
		pipe.Expire(ctx, ownerKey(owner), c.ttl)
		return nil
	})
	if err != nil {
		c.cleanup(requestID)
		return fmt.Errorf("indexing waiter: %w", err)
	}
	return nil
}

// Await blocks until the response for requestID arrives or timeout elapses
func (c *Correlator) Await(ctx context.Context, requestID string, timeout time.Duration) (relay.PendingResponse, error) {
	n, err := c.client.Exists(ctx, waiterKey(requestID), responseKey(requestID)).Result()
	if err != nil {
		return relay.PendingResponse{}, fmt.Errorf("checking waiter: %w", err)
	}
	if n == 0 {
		return relay.PendingResponse{}, relay.ErrUnknownRequest
	}
	defer c.cleanup(requestID)

	data, ok, err := blpopUntil(ctx, c.client, responseKey(requestID), time.Now().Add(timeout))
	if err != nil {
		if ctx.Err() != nil {
			return relay.PendingResponse{}, ctx.Err()
		}
		return relay.PendingResponse{}, fmt.Errorf("waiting for response: %w", err)
	}
	if !ok {
		return relay.PendingResponse{}, relay.ErrTimeout
	}
	if data == ownerGone {
		return relay.PendingResponse{}, relay.ErrClientUnavailable
	}

	var resp relay.PendingResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return relay.PendingResponse{}, fmt.Errorf("unmarshaling response: %w", err)
	}
	return resp, nil
}

// Submit publishes resp if owner holds the waiter slot of resp.RequestID
func (c *Correlator) Submit(ctx context.Context, owner relay.ClientKey, resp relay.PendingResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}

	n, err := submitScript.Run(ctx, c.client,
		[]string{waiterKey(resp.RequestID), responseKey(resp.RequestID), ownerKey(owner)},
		owner.String(), data, int64(c.ttl.Seconds()), resp.RequestID,
	).Int()
	if err != nil {
		return fmt.Errorf("publishing response: %w", err)
	}
	if n == 0 {
		return relay.ErrUnknownRequest
	}
	return nil
}

// Cancel releases requestID's keys
func (c *Correlator) Cancel(ctx context.Context, requestID string) error {
	if err := c.release(ctx, requestID); err != nil {
		return fmt.Errorf("deleting correlation keys: %w", err)
	}
	return nil
}

// FailOwner wakes every waiter owned by owner with ErrClientUnavailable
func (c *Correlator) FailOwner(ctx context.Context, owner relay.ClientKey) error {
	err := failOwnerScript.Run(ctx, c.client,
		[]string{ownerKey(owner)},
		waiterPrefix, responsePrefix, owner.String(), ownerGone, int64(c.ttl.Seconds()),
	).Err()
	if err != nil {
		return fmt.Errorf("failing waiters of %s: %w", owner, err)
	}
	return nil
}

// Pending counts reserved waiter slots
func (c *Correlator) Pending(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, waiterPrefix+":*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("scanning waiter keys: %w", err)
		}
		count += int64(len(keys))

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

func (c *Correlator) cleanup(requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.release(ctx, requestID)
}

func (c *Correlator) release(ctx context.Context, requestID string) error {
	return releaseScript.Run(ctx, c.client,
		[]string{waiterKey(requestID), responseKey(requestID)},
		ownerPrefix, requestID,
	).Err()
}

func ownerKey(owner relay.ClientKey) string {
	return fmt.Sprintf("%s:%s", ownerPrefix, owner.String())
}

func waiterKey(requestID string) string {
	return fmt.Sprintf("%s:%s", waiterPrefix, requestID)
}

func responseKey(requestID string) string {
	return fmt.Sprintf("%s:%s", responsePrefix, requestID)
}
