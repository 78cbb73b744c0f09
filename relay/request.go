package relay

import (
	"strings"
	"time"
)

/* PendingRequest is one inbound HTTP call waiting to be delivered to a client
 * Uses value semantics as it represents data, not behavior
 */
type PendingRequest struct {
	ID          string            `json:"id"`
	Client      ClientKey         `json:"client"`
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Path        string            `json:"path"`
	Headers     map[string]string `json:"headers"`
	Body        []byte            `json:"body,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	ReceivedAt  time.Time         `json:"receivedAt"`
	// ExpectsResponse is false for fire-and-forget deliveries
	ExpectsResponse bool `json:"expectsResponse"`
}

// Header returns the value of a header regardless of key case
func (r PendingRequest) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// PendingResponse is the result a client computed for a PendingRequest
type PendingResponse struct {
	RequestID string            `json:"requestId"`
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      []byte            `json:"body,omitempty"`
}

// NormalizeHeaders lower-cases header keys, keeping the first value of each
func NormalizeHeaders(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		key := strings.ToLower(k)
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = v[0]
	}
	return out
}
