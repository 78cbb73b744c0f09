package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/relay"
)

/* PostgreSQL implementation of record.Repository
 * Headers are stored as JSONB and bodies as BYTEA
 */

const (
	insertQuery = `
		INSERT INTO webhook_requests (
			id, api_key, client_id, request_id, method, url, path, content_type,
			headers, body, response_status, response_headers, response_body,
			outcome, received_at, completed_at, duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	listQuery = `
		SELECT id, api_key, client_id, request_id, method, url, path, content_type,
			headers, body, response_status, response_headers, response_body,
			outcome, received_at, completed_at, duration_ms
		FROM webhook_requests
		WHERE api_key = $1
		ORDER BY received_at DESC
		LIMIT $2
	`
)

type Repository struct {
	DB *sql.DB
}

// NewRepository opens a PostgreSQL repository with the default pool (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig opens a PostgreSQL repository with a custom pool
// maxOpenConns: maximum simultaneous connections (0 = unlimited)
// maxIdleConns: maximum idle connections kept in the pool
// maxLifeMinutes: maximum minutes a connection may be reused
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{
		DB: db,
	}, nil
}

// Insert stores a completed request
func (r *Repository) Insert(ctx context.Context, rec record.Record) error {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}
	responseHeaders, err := json.Marshal(rec.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("marshaling response headers: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, insertQuery,
		rec.ID,
		rec.APIKey,
		rec.ClientID,
		rec.RequestID,
		rec.Method,
		rec.URL,
		rec.Path,
		rec.ContentType,
		headers,
		rec.Body,
		rec.ResponseStatus,
		responseHeaders,
		rec.ResponseBody,
		rec.Outcome.String(),
		rec.ReceivedAt,
		rec.CompletedAt,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// ListByAPIKey returns the most recent records of apiKey
func (r *Repository) ListByAPIKey(ctx context.Context, apiKey string, limit int) ([]record.Record, error) {
	rows, err := r.DB.QueryContext(ctx, listQuery, apiKey, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}
	defer rows.Close()

	var recs []record.Record
	for rows.Next() {
		var (
			rec             record.Record
			headers         []byte
			responseHeaders []byte
			outcome         string
			durationMs      int64
		)
		err := rows.Scan(
			&rec.ID,
			&rec.APIKey,
			&rec.ClientID,
			&rec.RequestID,
			&rec.Method,
			&rec.URL,
			&rec.Path,
			&rec.ContentType,
			&headers,
			&rec.Body,
			&rec.ResponseStatus,
			&responseHeaders,
			&rec.ResponseBody,
			&outcome,
			&rec.ReceivedAt,
			&rec.CompletedAt,
			&durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := unmarshalHeaders(headers, &rec.Headers); err != nil {
			return nil, err
		}
		if err := unmarshalHeaders(responseHeaders, &rec.ResponseHeaders); err != nil {
			return nil, err
		}
		rec.Outcome = relay.NewOutcome(outcome)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return recs, nil
}

// Close closes the database connection
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTable creates the webhook_requests table (useful for tests and first boot)
func (r *Repository) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS webhook_requests (
			id TEXT PRIMARY KEY,
			api_key TEXT NOT NULL,
			client_id TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			path TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			headers JSONB NOT NULL,
			body BYTEA,
			response_status INTEGER NOT NULL DEFAULT 0,
			response_headers JSONB,
			response_body BYTEA,
			outcome TEXT NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS webhook_requests_api_key_received_at
			ON webhook_requests (api_key, received_at DESC);
	`

	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}
	return nil
}

// DropTable removes the webhook_requests table (useful for tests)
func (r *Repository) DropTable(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, "DROP TABLE IF EXISTS webhook_requests CASCADE"); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}
	return nil
}

func unmarshalHeaders(data []byte, dst *map[string]string) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshaling headers: %w", err)
	}
	return nil
}
