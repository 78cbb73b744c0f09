package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/marcelsud/webhook-relay/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("success - newest first, scoped by key", func(t *testing.T) {
		repo := NewRepository(10)
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Insert(ctx, record.Record{ID: fmt.Sprint(i), APIKey: "k"}))
		}
		require.NoError(t, repo.Insert(ctx, record.Record{ID: "other", APIKey: "x"}))

		recs, err := repo.ListByAPIKey(ctx, "k", 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "2", recs[0].ID)
		assert.Equal(t, "1", recs[1].ID)
	})

	t.Run("success - oldest evicted at capacity", func(t *testing.T) {
		repo := NewRepository(2)
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Insert(ctx, record.Record{ID: fmt.Sprint(i), APIKey: "k"}))
		}

		recs, err := repo.ListByAPIKey(ctx, "k", 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "2", recs[0].ID)
		assert.Equal(t, "1", recs[1].ID)
	})

	t.Run("success - unknown key is empty", func(t *testing.T) {
		recs, err := NewRepository(0).ListByAPIKey(ctx, "none", 10)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}
