package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/gorilla/websocket"
	"github.com/marcelsud/webhook-relay/relay"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 10 * time.Second
	maxEventBytes      = 16 << 20
)

// event mirrors the server's delivery frames
type event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Type string                `json:"type"`
	Data relay.PendingResponse `json:"data"`
}

// dispatchEvent submits request events to the pool; other events only keep the session alive
func (c *Client) dispatchEvent(ctx context.Context, pool pond.Pool, ev event, reply func(context.Context, relay.PendingResponse) error) {
	switch ev.Type {
	case "connected":
		c.logger.Info().Str("server", c.server.String()).Str("transport", c.cfg.Transport).Msg("connected to relay")
	case "request":
		var req relay.PendingRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			c.logger.Warn().Err(err).Msg("invalid request event")
			return
		}
		pool.Submit(func() { c.handle(ctx, req, reply) })
	}
}

// runStream reads the NDJSON delivery stream; responses go back over HTTP
func (c *Client) runStream(ctx context.Context, pool pond.Pool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v1/tunnel/connect"), nil)
	if err != nil {
		return err
	}
	c.authorize(req.Header)

	// the stream is long-lived, so the api client's timeout does not apply
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return rejected(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxEventBytes)
	for scanner.Scan() {
		var ev event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			c.logger.Warn().Err(err).Msg("invalid stream line")
			continue
		}
		c.dispatchEvent(ctx, pool, ev, c.pushResponse)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return fmt.Errorf("stream closed by server")
}

func (c *Client) wsURL() string {
	u := c.endpoint("/v1/tunnel/ws")
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}

// runWebSocket reads delivery frames and answers in-band
func (c *Client) runWebSocket(ctx context.Context, pool pond.Pool) error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	header := http.Header{}
	c.authorize(header)

	conn, resp, err := dialer.DialContext(ctx, c.wsURL(), header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			defer resp.Body.Close()
			return rejected(resp)
		}
		return fmt.Errorf("ws connect: %w", err)
	}
	conn.SetReadLimit(maxEventBytes)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessionCtx, func() { conn.Close() })
	defer stop()

	var writeMu sync.Mutex
	reply := func(_ context.Context, r relay.PendingResponse) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(outboundFrame{Type: "response", Data: r})
	}

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		c.dispatchEvent(sessionCtx, pool, ev, reply)
	}
}
