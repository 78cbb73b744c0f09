package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(0)
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	require.NoError(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: "A"}))
	require.NoError(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: "B"}))

	first, ok, err := q.DequeueOne(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := q.DequeueOne(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "A", first.ID)
	assert.Equal(t, "B", second.ID)

	_, ok, err = q.DequeueOne(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueue_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(0)
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: fmt.Sprint(i)}))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				req, ok, err := q.DequeueOne(ctx, key)
				if err != nil || !ok {
					return
				}
				mu.Lock()
				seen[req.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
}

func TestQueue_MaxDepth(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(2)
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	require.NoError(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: "1"}))
	require.NoError(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: "2"}))
	assert.ErrorIs(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: "3"}), relay.ErrQueueFull)

	other := relay.ClientKey{APIKey: "k", ClientID: "d"}
	assert.NoError(t, q.Enqueue(ctx, other, relay.PendingRequest{ID: "4"}))

	depths, err := q.Depths(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depths["k:c"])
	assert.Equal(t, int64(1), depths["k:d"])
}

func TestQueue_WaitDequeue(t *testing.T) {
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	t.Run("success - wakes on enqueue", func(t *testing.T) {
		ctx := context.Background()
		q := NewQueue(0)
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.Enqueue(ctx, key, relay.PendingRequest{ID: "late"})
		}()

		start := time.Now()
		req, ok, err := q.WaitDequeue(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "late", req.ID)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("success - empty after wait", func(t *testing.T) {
		start := time.Now()
		_, ok, err := NewQueue(0).WaitDequeue(context.Background(), key, 30*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("error - context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, ok, err := NewQueue(0).WaitDequeue(ctx, key, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ok)
	})
}

func TestQueue_Drop(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(0)
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	require.NoError(t, q.Enqueue(ctx, key, relay.PendingRequest{ID: "1"}))
	require.NoError(t, q.Drop(ctx, key))

	_, ok, err := q.DequeueOne(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
