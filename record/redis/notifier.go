package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/record"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "relay:events"

// Event is the realtime notification payload, without bodies
type Event struct {
	Type           string    `json:"type"`
	RecordID       string    `json:"recordId"`
	RequestID      string    `json:"requestId,omitempty"`
	ClientID       string    `json:"clientId,omitempty"`
	Method         string    `json:"method"`
	URL            string    `json:"url"`
	ResponseStatus int       `json:"responseStatus,omitempty"`
	Outcome        string    `json:"outcome"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// Notifier publishes record events on a Redis channel per API key
type Notifier struct {
	client *redis.Client
}

// NewNotifier creates a notifier over client
func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

// Publish announces rec on relay:events:{api_key}
func (n *Notifier) Publish(ctx context.Context, rec record.Record) error {
	data, err := json.Marshal(Event{
		Type:           "request.completed",
		RecordID:       rec.ID,
		RequestID:      rec.RequestID,
		ClientID:       rec.ClientID,
		Method:         rec.Method,
		URL:            rec.URL,
		ResponseStatus: rec.ResponseStatus,
		Outcome:        rec.Outcome.String(),
		ReceivedAt:     rec.ReceivedAt,
	})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := n.client.Publish(ctx, Channel(rec.APIKey), data).Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Channel returns the pub/sub channel of an API key
func Channel(apiKey string) string {
	return fmt.Sprintf("%s:%s", channelPrefix, apiKey)
}
