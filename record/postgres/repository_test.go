//go:build !integration

package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "api_key", "client_id", "request_id", "method", "url", "path", "content_type",
	"headers", "body", "response_status", "response_headers", "response_body",
	"outcome", "received_at", "completed_at", "duration_ms",
}

func sampleRecord() record.Record {
	received := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return record.Record{
		ID:              "rec-1",
		APIKey:          "k",
		ClientID:        "c",
		RequestID:       "req-1",
		Method:          "POST",
		URL:             "/hooks?x=1",
		Path:            "/hooks",
		ContentType:     "application/json",
		Headers:         map[string]string{"content-type": "application/json"},
		Body:            []byte(`{"a":1}`),
		ResponseStatus:  200,
		ResponseHeaders: map[string]string{"x-handled": "yes"},
		ResponseBody:    []byte("ok"),
		Outcome:         relay.Delivered,
		ReceivedAt:      received,
		CompletedAt:     received.Add(1500 * time.Millisecond),
		Duration:        1500 * time.Millisecond,
	}
}

func TestRepository_Insert_Unit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &Repository{DB: db}
		rec := sampleRecord()

		mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
			WithArgs(
				"rec-1", "k", "c", "req-1", "POST", "/hooks?x=1", "/hooks", "application/json",
				[]byte(`{"content-type":"application/json"}`), []byte(`{"a":1}`), 200,
				[]byte(`{"x-handled":"yes"}`), []byte("ok"), "delivered",
				rec.ReceivedAt, rec.CompletedAt, int64(1500),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Insert(ctx, rec))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fail", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &Repository{DB: db}
		mock.ExpectExec(regexp.QuoteMeta(insertQuery)).WillReturnError(errors.New("connection reset"))

		err = repo.Insert(ctx, sampleRecord())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inserting record")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ListByAPIKey_Unit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &Repository{DB: db}
		want := sampleRecord()
		rows := sqlmock.NewRows(columns).AddRow([]driver.Value{
			want.ID, want.APIKey, want.ClientID, want.RequestID, want.Method, want.URL, want.Path,
			want.ContentType, []byte(`{"content-type":"application/json"}`), want.Body,
			want.ResponseStatus, []byte(`{"x-handled":"yes"}`), want.ResponseBody,
			"delivered", want.ReceivedAt, want.CompletedAt, int64(1500),
		}...)
		mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WithArgs("k", 10).WillReturnRows(rows)

		recs, err := repo.ListByAPIKey(ctx, "k", 10)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, want, recs[0])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - null response headers", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &Repository{DB: db}
		now := time.Now().UTC()
		rows := sqlmock.NewRows(columns).AddRow(
			"rec-2", "k", "", "", "GET", "/", "/", "", []byte(`{}`), nil,
			0, nil, nil, "queued", now, now, int64(0),
		)
		mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WithArgs("k", 5).WillReturnRows(rows)

		recs, err := repo.ListByAPIKey(ctx, "k", 5)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, relay.Queued, recs[0].Outcome)
		assert.Nil(t, recs[0].ResponseHeaders)
	})

	t.Run("fail", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := &Repository{DB: db}
		mock.ExpectQuery(regexp.QuoteMeta(listQuery)).WithArgs("k", 5).WillReturnError(errors.New("timeout"))

		_, err = repo.ListByAPIKey(ctx, "k", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "selecting records")
	})
}
