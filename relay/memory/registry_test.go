package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRegistry_IsLive(t *testing.T) {
	ctx := context.Background()
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	t.Run("success - fresh registration is live", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		r := NewRegistry(30 * time.Second).WithClock(clock.Now)
		require.NoError(t, r.Register(ctx, key))

		live, err := r.IsLive(ctx, key)
		require.NoError(t, err)
		assert.True(t, live)
	})

	t.Run("success - registration older than the timeout is not live", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		r := NewRegistry(30 * time.Second).WithClock(clock.Now)
		require.NoError(t, r.Register(ctx, key))

		clock.Advance(30*time.Second + time.Millisecond)
		live, err := r.IsLive(ctx, key)
		require.NoError(t, err)
		assert.False(t, live)
	})

	t.Run("success - unknown client is not live", func(t *testing.T) {
		live, err := NewRegistry(time.Second).IsLive(ctx, key)
		require.NoError(t, err)
		assert.False(t, live)
	})
}

func TestRegistry_Sweep(t *testing.T) {
	ctx := context.Background()
	key := relay.ClientKey{APIKey: "k", ClientID: "c"}

	t.Run("success - heartbeats keep a client, silence evicts it", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		r := NewRegistry(30 * time.Second).WithClock(clock.Now)
		require.NoError(t, r.Register(ctx, key))

		for i := 0; i < 3; i++ {
			clock.Advance(10 * time.Second)
			require.NoError(t, r.Heartbeat(ctx, key))
		}
		removed, err := r.Sweep(ctx, clock.Now())
		require.NoError(t, err)
		assert.Empty(t, removed)

		clock.Advance(35 * time.Second)
		live, err := r.IsLive(ctx, key)
		require.NoError(t, err)
		assert.False(t, live)

		removed, err = r.Sweep(ctx, clock.Now())
		require.NoError(t, err)
		assert.Equal(t, []relay.ClientKey{key}, removed)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("success - only stale entries are removed", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1000, 0)}
		r := NewRegistry(30 * time.Second).WithClock(clock.Now)
		stale := relay.ClientKey{APIKey: "k", ClientID: "old"}
		fresh := relay.ClientKey{APIKey: "k", ClientID: "new"}

		require.NoError(t, r.Register(ctx, stale))
		clock.Advance(40 * time.Second)
		require.NoError(t, r.Register(ctx, fresh))

		removed, err := r.Sweep(ctx, clock.Now())
		require.NoError(t, err)
		assert.Equal(t, []relay.ClientKey{stale}, removed)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	r := NewRegistry(30 * time.Second).WithClock(clock.Now)

	require.NoError(t, r.Register(ctx, relay.ClientKey{APIKey: "k", ClientID: "a"}))
	clock.Advance(time.Second)
	require.NoError(t, r.Register(ctx, relay.ClientKey{APIKey: "k", ClientID: "b"}))
	require.NoError(t, r.Register(ctx, relay.ClientKey{APIKey: "other", ClientID: "x"}))

	regs, err := r.List(ctx, "k")
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "b", regs[0].Key.ClientID)
	assert.Equal(t, "a", regs[1].Key.ClientID)

	require.NoError(t, r.Unregister(ctx, relay.ClientKey{APIKey: "k", ClientID: "b"}))
	regs, err = r.List(ctx, "k")
	require.NoError(t, err)
	require.Len(t, regs, 1)
}
