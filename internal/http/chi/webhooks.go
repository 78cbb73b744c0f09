package chi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes = 10 << 20

	msgWebhookReceived = "Webhook received"
	msgInternalError   = "Internal server error"
	msgClientRequired  = "Client ID required"
)

// credential headers are consumed by the relay and never forwarded
var relayHeaders = []string{headerAPIKey, headerEndpoint, headerClientID}

// admit runs the admission checks and writes the rejection when they fail
func admit(w http.ResponseWriter, r *http.Request, tunnels tunnel.Lookup) (credentials, tunnel.Decision, bool) {
	creds := credentialsFrom(r)
	decision := tunnel.Validate(creds.APIKey, creds.Endpoint, r.Method, tunnels)
	if !decision.Authorized() {
		http.Error(w, decision.Reason, decision.StatusCode())
		return creds, decision, false
	}
	return creds, decision, true
}

// buildRequest turns an admitted inbound call into a pending request
func buildRequest(w http.ResponseWriter, r *http.Request, creds credentials, decision tunnel.Decision) (relay.PendingRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return relay.PendingRequest{}, err
	}
	defer r.Body.Close()

	headers := relay.NormalizeHeaders(r.Header)
	for _, h := range relayHeaders {
		delete(headers, h)
	}

	return relay.PendingRequest{
		ID:          uuid.New().String(),
		Client:      relay.ClientKey{APIKey: creds.APIKey, ClientID: creds.ClientID},
		Method:      strings.ToUpper(r.Method),
		URL:         normalizedURL(decision.Path, r.URL.Query()),
		Path:        decision.Path,
		Headers:     headers,
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		ReceivedAt:  time.Now(),
	}, nil
}

/* receiveWebhook handles ANY /v1/webhook[/*]
 * The call is acknowledged once its record is persisted; delivery to a
 * connected client is best-effort
 */
func receiveWebhook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, decision, ok := admit(w, r, deps.Tunnels)
		if !ok {
			return
		}
		logger := deps.Logger.With().Str("tunnel", decision.Tunnel.Name).Str("path", decision.Path).Logger()

		req, err := buildRequest(w, r, creds, decision)
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		outcome := relay.Unavailable
		delivered, queued, err := deps.Relay.Deliver(r.Context(), req)
		switch {
		case err != nil:
			outcome = relay.OutcomeOf(err)
			logger.Warn().Err(err).Str("request_id", req.ID).Msg("failed to queue webhook for client")
		case queued:
			req = delivered
			outcome = relay.Queued
		}

		rec := record.FromRequest(req).Complete(relay.PendingResponse{}, outcome, time.Now())
		if _, err := deps.Records.Save(r.Context(), rec); err != nil {
			logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to persist webhook")
			http.Error(w, msgInternalError, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(msgWebhookReceived))
	}
}

/* relayRequest handles ANY /v1/relay/*
 * The caller waits for the target client's response, which is passed through
 */
func relayRequest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, decision, ok := admit(w, r, deps.Tunnels)
		if !ok {
			return
		}
		if creds.ClientID == "" {
			http.Error(w, msgClientRequired, http.StatusBadRequest)
			return
		}

		req, err := buildRequest(w, r, creds, decision)
		if err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		dispatch(w, r, deps, req)
	}
}

// dispatch runs a synchronous round trip and writes the client's response
func dispatch(w http.ResponseWriter, r *http.Request, deps Deps, req relay.PendingRequest) {
	resp, err := deps.Relay.Dispatch(r.Context(), req, 0)
	rec := record.FromRequest(req).Complete(resp, relay.OutcomeOf(err), time.Now())
	if deps.Saver != nil {
		deps.Saver.Submit(rec)
	}
	if err != nil {
		writeRelayError(w, deps.Logger, req, err)
		return
	}
	writeResponse(w, resp)
}

// statusFor maps relay errors to HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, relay.ErrClientUnavailable):
		return http.StatusNotFound, "Client not connected"
	case errors.Is(err, relay.ErrQueueFull):
		return http.StatusServiceUnavailable, "Client queue is full"
	case errors.Is(err, relay.ErrTimeout):
		return http.StatusGatewayTimeout, "Timed out waiting for client response"
	case errors.Is(err, relay.ErrUnknownRequest):
		return http.StatusNotFound, "Unknown request"
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}

func writeRelayError(w http.ResponseWriter, logger zerolog.Logger, req relay.PendingRequest, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("client", req.Client.String()).
			Str("request_id", req.ID).
			Msg("relay dispatch failed")
	}
	http.Error(w, msg, status)
}

var hopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"content-length":      true,
}

func writeResponse(w http.ResponseWriter, resp relay.PendingResponse) {
	for k, v := range resp.Headers {
		if hopByHop[strings.ToLower(k)] {
			continue
		}
		w.Header().Set(k, v)
	}
	status := resp.Status
	switch {
	case status == 0:
		status = http.StatusOK
	case status < 100 || status > 999:
		http.Error(w, "Client returned an invalid status code", http.StatusBadGateway)
		return
	}
	w.WriteHeader(status)
	w.Write(resp.Body)
}
