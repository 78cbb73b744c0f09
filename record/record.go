package record

import (
	"time"

	"github.com/marcelsud/webhook-relay/relay"
)

/* Record is the durable trace of a request that went through the relay,
 * kept for later display
 * Uses value semantics as it represents data, not behavior
 */
type Record struct {
	ID              string            `json:"id"`
	APIKey          string            `json:"-"`
	ClientID        string            `json:"clientId,omitempty"`
	RequestID       string            `json:"requestId,omitempty"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Path            string            `json:"path"`
	ContentType     string            `json:"contentType,omitempty"`
	Headers         map[string]string `json:"headers"`
	Body            []byte            `json:"body,omitempty"`
	ResponseStatus  int               `json:"responseStatus,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	ResponseBody    []byte            `json:"responseBody,omitempty"`
	Outcome         relay.Outcome     `json:"-"`
	ReceivedAt      time.Time         `json:"receivedAt"`
	CompletedAt     time.Time         `json:"completedAt"`
	Duration        time.Duration     `json:"-"`
}

// FromRequest starts a record from a pending request
func FromRequest(req relay.PendingRequest) Record {
	return Record{
		APIKey:      req.Client.APIKey,
		ClientID:    req.Client.ClientID,
		RequestID:   req.ID,
		Method:      req.Method,
		URL:         req.URL,
		Path:        req.Path,
		ContentType: req.ContentType,
		Headers:     req.Headers,
		Body:        req.Body,
		ReceivedAt:  req.ReceivedAt,
	}
}

// Complete fills in the client's response and the timing
func (r Record) Complete(resp relay.PendingResponse, outcome relay.Outcome, completedAt time.Time) Record {
	r.ResponseStatus = resp.Status
	r.ResponseHeaders = resp.Headers
	r.ResponseBody = resp.Body
	r.Outcome = outcome
	r.CompletedAt = completedAt
	if !r.ReceivedAt.IsZero() {
		r.Duration = completedAt.Sub(r.ReceivedAt)
	}
	return r
}
