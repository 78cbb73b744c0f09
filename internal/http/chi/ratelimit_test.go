package chi

import (
	"fmt"
	"testing"

	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLimiter(t *testing.T) {
	tunnels := tunnel.NewLoader()
	tn, err := tunnel.New(testKey, "test", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, tunnels.Add(tn))

	t.Run("success - unknown keys never allocate a bucket", func(t *testing.T) {
		l := newKeyLimiter(RateLimit{RPS: 0.001, Burst: 1}, tunnels)
		for i := 0; i < 1000; i++ {
			assert.True(t, l.allow(fmt.Sprintf("bogus-%d", i)))
		}
		assert.Equal(t, 0, l.limiters.Size())
	})

	t.Run("error - known key over budget", func(t *testing.T) {
		l := newKeyLimiter(RateLimit{RPS: 0.001, Burst: 1}, tunnels)
		assert.True(t, l.allow(testKey))
		assert.False(t, l.allow(testKey))
		assert.Equal(t, 1, l.limiters.Size())
	})

	t.Run("success - disabled limiter allows everything", func(t *testing.T) {
		l := newKeyLimiter(RateLimit{}, tunnels)
		for i := 0; i < 5; i++ {
			assert.True(t, l.allow(testKey))
		}
		assert.Equal(t, 0, l.limiters.Size())
	})
}
