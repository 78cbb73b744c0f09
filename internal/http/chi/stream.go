package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/relay"
)

const (
	eventConnected = "connected"
	eventRequest   = "request"
	eventPing      = "ping"
	eventResponse  = "response"

	writeWait = 10 * time.Second
)

// event is one frame of the delivery channel
type event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// inboundFrame is a frame sent by a WebSocket client
type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// clientKeyFrom identifies the calling client, writing 400/401 when it cannot
func clientKeyFrom(w http.ResponseWriter, deps Deps, r *http.Request) (relay.ClientKey, bool) {
	creds := credentialsFrom(r)
	if creds.APIKey == "" || creds.ClientID == "" {
		http.Error(w, "x-api-key and x-client-id are required", http.StatusBadRequest)
		return relay.ClientKey{}, false
	}
	if !knownKey(w, deps, creds.APIKey) {
		return relay.ClientKey{}, false
	}
	return relay.ClientKey{APIKey: creds.APIKey, ClientID: creds.ClientID}, true
}

// withServer ends ctx when either the request or the server context ends
func withServer(serverCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(serverCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

/* streamRequests registers key and hands it every queued request until ctx ends
 * Each loop is a heartbeat; an empty wait emits a ping so dead peers surface
 * as write errors
 */
func streamRequests(ctx context.Context, deps Deps, key relay.ClientKey, send func(event) error) error {
	if err := deps.Relay.Connect(ctx, key); err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Relay.Disconnect(dctx, key); err != nil {
			deps.Logger.Error().Err(err).Str("client", key.String()).Msg("failed to disconnect client")
		}
	}()

	if err := send(event{Type: eventConnected}); err != nil {
		return nil
	}

	for {
		req, ok, err := deps.Relay.PollNext(ctx, key, deps.PollWait)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		ev := event{Type: eventPing}
		if ok {
			ev = event{Type: eventRequest, Data: req}
		}
		if err := send(ev); err != nil {
			if ok {
				deps.Logger.Warn().Err(err).
					Str("client", key.String()).
					Str("request_id", req.ID).
					Msg("request lost on broken stream")
			}
			return nil
		}
	}
}

// connectStream handles GET /v1/tunnel/connect as a newline-delimited JSON stream
func connectStream(serverCtx context.Context, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := clientKeyFrom(w, deps, r)
		if !ok {
			return
		}
		ctx, cancel := withServer(serverCtx, r.Context())
		defer cancel()

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		enc := json.NewEncoder(w)
		send := func(ev event) error {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			return rc.Flush()
		}

		if err := streamRequests(ctx, deps, key, send); err != nil {
			deps.Logger.Error().Err(err).Str("client", key.String()).Msg("stream ended with error")
		}
	}
}

/* connectWebSocket handles GET /v1/tunnel/ws
 * Requests flow down as in the NDJSON stream; the client may answer in-band
 * with response frames
 */
func connectWebSocket(serverCtx context.Context, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := clientKeyFrom(w, deps, r)
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := withServer(serverCtx, r.Context())
		defer cancel()

		go func() {
			defer cancel()
			readResponses(ctx, deps, key, conn)
		}()

		send := func(ev event) error {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(ev)
		}
		if err := streamRequests(ctx, deps, key, send); err != nil {
			deps.Logger.Error().Err(err).Str("client", key.String()).Msg("websocket ended with error")
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}
}

func readResponses(ctx context.Context, deps Deps, key relay.ClientKey, conn *websocket.Conn) {
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != eventResponse {
			continue
		}
		var resp relay.PendingResponse
		if err := json.Unmarshal(frame.Data, &resp); err != nil {
			deps.Logger.Warn().Err(err).Str("client", key.String()).Msg("invalid response frame")
			continue
		}
		if err := deps.Relay.PushResult(ctx, key, resp); err != nil {
			if errors.Is(err, relay.ErrUnknownRequest) {
				deps.Logger.Debug().Str("request_id", resp.RequestID).Msg("late or unknown response discarded")
				continue
			}
			deps.Logger.Error().Err(err).Str("client", key.String()).Msg("failed to push response")
		}
	}
}

// pollRequest handles GET /v1/tunnel/poll?wait=
func pollRequest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := clientKeyFrom(w, deps, r)
		if !ok {
			return
		}

		req, found, err := deps.Relay.PollNext(r.Context(), key, parseWait(r.URL.Query().Get("wait"), deps.PollWait))
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			deps.Logger.Error().Err(err).Str("client", key.String()).Msg("poll failed")
			http.Error(w, msgInternalError, http.StatusInternalServerError)
			return
		}
		if !found {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

// parseWait accepts a Go duration or a number of seconds
func parseWait(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// listRecords handles GET /v1/requests?limit=
func listRecords(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := credentialsFrom(r).APIKey
		if !knownKey(w, deps, apiKey) {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recs, err := deps.Records.List(r.Context(), apiKey, limit)
		if err != nil {
			deps.Logger.Error().Err(err).Msg("failed to list records")
			http.Error(w, msgInternalError, http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []record.Record{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}
