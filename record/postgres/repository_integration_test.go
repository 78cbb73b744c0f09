//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepository_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, cleanup := SetupPostgresContainer(t, ctx)
	defer cleanup()

	repo := CreateTestRepository(t, ctx, pgContainer.ConnStr)
	defer repo.Close(ctx)

	t.Run("insert and list newest first", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i := 0; i < 3; i++ {
			err := repo.Insert(ctx, record.Record{
				ID:          fmt.Sprintf("rec-%d", i),
				APIKey:      "k",
				Method:      "POST",
				URL:         "/hooks",
				Path:        "/hooks",
				Headers:     map[string]string{"x-seq": fmt.Sprint(i)},
				Body:        []byte("payload"),
				Outcome:     relay.Queued,
				ReceivedAt:  base.Add(time.Duration(i) * time.Second),
				CompletedAt: base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}
		require.NoError(t, repo.Insert(ctx, record.Record{
			ID: "other", APIKey: "x", Method: "GET", URL: "/", Path: "/",
			Headers: map[string]string{}, Outcome: relay.Delivered, ReceivedAt: base, CompletedAt: base,
		}))

		AssertRecordCount(t, ctx, pgContainer.DB, 4)

		recs, err := repo.ListByAPIKey(ctx, "k", 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "rec-2", recs[0].ID)
		assert.Equal(t, "rec-1", recs[1].ID)
		assert.Equal(t, "2", recs[0].Headers["x-seq"])
		assert.Equal(t, []byte("payload"), recs[0].Body)
		assert.Equal(t, relay.Queued, recs[0].Outcome)
	})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		now := time.Now()
		rec := record.Record{ID: "dup", APIKey: "k", Method: "GET", URL: "/", Path: "/", Outcome: relay.Delivered, ReceivedAt: now, CompletedAt: now}
		require.NoError(t, repo.Insert(ctx, rec))
		assert.Error(t, repo.Insert(ctx, rec))
	})
}
