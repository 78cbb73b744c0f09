package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
)

// not replayed to the target
var skipHeaders = map[string]bool{
	"host":              true,
	"connection":        true,
	"keep-alive":        true,
	"te":                true,
	"trailer":           true,
	"transfer-encoding": true,
	"upgrade":           true,
	"content-length":    true,
}

func badGateway(requestID, msg string) relay.PendingResponse {
	return relay.PendingResponse{
		RequestID: requestID,
		Status:    http.StatusBadGateway,
		Headers:   map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:      []byte(msg),
	}
}

// forward replays req against the target and captures its response
func (c *Client) forward(ctx context.Context, req relay.PendingRequest) relay.PendingResponse {
	target := c.target.String() + req.URL
	if !strings.HasPrefix(req.URL, "/") {
		target = c.target.String() + "/" + req.URL
	}

	localReq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		return badGateway(req.ID, "invalid request for local target")
	}
	for k, v := range req.Headers {
		if skipHeaders[strings.ToLower(k)] {
			continue
		}
		localReq.Header.Set(k, v)
	}
	if req.ContentType != "" && localReq.Header.Get("Content-Type") == "" {
		localReq.Header.Set("Content-Type", req.ContentType)
	}
	if c.secret != nil {
		if err := c.secret.Apply(localReq.Header, req.ID, time.Now(), req.Body); err != nil {
			return badGateway(req.ID, "failed to sign request")
		}
	}

	resp, err := c.fwdClient.Do(localReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("request_id", req.ID).Msg("local target unavailable")
		return badGateway(req.ID, "local target unavailable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return badGateway(req.ID, "failed to read local target response")
	}
	if len(body) > maxResponseBytes {
		return badGateway(req.ID, "local target response too large")
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		if skipHeaders[strings.ToLower(k)] {
			continue
		}
		headers[k] = resp.Header.Get(k)
	}
	return relay.PendingResponse{
		RequestID: req.ID,
		Status:    resp.StatusCode,
		Headers:   headers,
		Body:      body,
	}
}
