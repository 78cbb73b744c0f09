package record

import "context"

// Reader provides read operations for records
type Reader interface {
	ListByAPIKey(ctx context.Context, apiKey string, limit int) ([]Record, error)
}

// Writer provides write operations for records
type Writer interface {
	Insert(ctx context.Context, rec Record) error
}

type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}

/* Notifier tells realtime subscribers (dashboards) about a new record
 * Delivery is best-effort
 */
type Notifier interface {
	Publish(ctx context.Context, rec Record) error
}
