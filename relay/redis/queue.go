package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/redis/go-redis/v9"
)

// enqueueScript appends to the list unless it already holds ARGV[2] items
var enqueueScript = redis.NewScript(`
local max = tonumber(ARGV[2])
if max > 0 and redis.call('LLEN', KEYS[1]) >= max then
	return -1
end
redis.call('SADD', KEYS[2], ARGV[3])
return redis.call('RPUSH', KEYS[1], ARGV[1])
`)

/* Queue keeps one Redis list per client
 * RPUSH on enqueue and LPOP/BLPOP on dequeue give FIFO order, and a
 * popped element is gone for every other consumer
 */
type Queue struct {
	client   *redis.Client
	maxDepth int
}

// NewQueue creates a Redis queue; maxDepth <= 0 means unbounded
func NewQueue(client *redis.Client, maxDepth int) *Queue {
	return &Queue{client: client, maxDepth: maxDepth}
}

// Enqueue appends req to the client's list
func (q *Queue) Enqueue(ctx context.Context, key relay.ClientKey, req relay.PendingRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	n, err := enqueueScript.Run(ctx, q.client,
		[]string{queueKey(key), queuesSet},
		data, q.maxDepth, key.String(),
	).Int64()
	if err != nil {
		return fmt.Errorf("pushing request: %w", err)
	}
	if n < 0 {
		return relay.ErrQueueFull
	}
	return nil
}

// DequeueOne pops the head of the client's list
func (q *Queue) DequeueOne(ctx context.Context, key relay.ClientKey) (relay.PendingRequest, bool, error) {
	data, err := q.client.LPop(ctx, queueKey(key)).Bytes()
	if err == redis.Nil {
		return relay.PendingRequest{}, false, nil
	}
	if err != nil {
		return relay.PendingRequest{}, false, fmt.Errorf("popping request: %w", err)
	}
	return decodeRequest(data)
}

// WaitDequeue blocks on BLPOP for up to wait
func (q *Queue) WaitDequeue(ctx context.Context, key relay.ClientKey, wait time.Duration) (relay.PendingRequest, bool, error) {
	data, ok, err := blpopUntil(ctx, q.client, queueKey(key), time.Now().Add(wait))
	if err != nil {
		if ctx.Err() != nil {
			return relay.PendingRequest{}, false, ctx.Err()
		}
		return relay.PendingRequest{}, false, fmt.Errorf("waiting for request: %w", err)
	}
	if !ok {
		return relay.PendingRequest{}, false, nil
	}
	return decodeRequest([]byte(data))
}

// Drop deletes the client's list
func (q *Queue) Drop(ctx context.Context, key relay.ClientKey) error {
	pipe := q.client.TxPipeline()
	pipe.Del(ctx, queueKey(key))
	pipe.SRem(ctx, queuesSet, key.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("dropping queue: %w", err)
	}
	return nil
}

// Depths returns the length of every known client list
func (q *Queue) Depths(ctx context.Context) (map[string]int64, error) {
	members, err := q.client.SMembers(ctx, queuesSet).Result()
	if err != nil {
		return nil, fmt.Errorf("listing queues: %w", err)
	}
	if len(members) == 0 {
		return map[string]int64{}, nil
	}

	pipe := q.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(members))
	for i, member := range members {
		cmds[i] = pipe.LLen(ctx, queuePrefix+":"+member)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("executing pipeline: %w", err)
	}

	depths := make(map[string]int64, len(members))
	for i, cmd := range cmds {
		depths[members[i]] = cmd.Val()
	}
	return depths, nil
}

func queueKey(key relay.ClientKey) string {
	return fmt.Sprintf("%s:%s", queuePrefix, key.String())
}

func decodeRequest(data []byte) (relay.PendingRequest, bool, error) {
	var req relay.PendingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return relay.PendingRequest{}, false, fmt.Errorf("unmarshaling request: %w", err)
	}
	return req, true, nil
}
