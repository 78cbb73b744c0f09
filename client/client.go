// Package client is the relay client: it holds a delivery channel open to a
// relay server, forwards each delivered request to a local target and pushes
// the target's response back when the caller is waiting for it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/signing"
	"github.com/rs/zerolog"
)

const (
	TransportWebSocket = "ws"
	TransportStream    = "stream"

	reconnectInitialDelay = time.Second
	reconnectMaxDelay     = 30 * time.Second
	maxResponseBytes      = 10 << 20
)

// Config identifies the client and where delivered requests go
type Config struct {
	ServerURL string
	APIKey    string
	ClientID  string
	// Target is the local base URL requests are forwarded to
	Target    string
	Transport string
	Workers   int
	Timeout   time.Duration
	// SigningSecret, when set, signs every forwarded request
	SigningSecret string
}

// Validate checks the configuration before connecting
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.Target == "" {
		return errors.New("target url is required")
	}
	if err := (relay.ClientKey{APIKey: c.APIKey, ClientID: c.ClientID}).Validate(); err != nil {
		return err
	}
	switch c.Transport {
	case TransportWebSocket, TransportStream:
	default:
		return fmt.Errorf("transport must be %q or %q, got %q", TransportWebSocket, TransportStream, c.Transport)
	}
	return nil
}

type Client struct {
	cfg       Config
	server    *url.URL
	target    *url.URL
	secret    signing.Secret
	logger    zerolog.Logger
	apiClient *http.Client
	fwdClient *http.Client
}

// New creates a client; Run opens the connection
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Transport == "" {
		cfg.Transport = TransportWebSocket
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = relay.DefaultRequestTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	server, err := url.Parse(strings.TrimSuffix(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	target, err := url.Parse(strings.TrimSuffix(cfg.Target, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing target url: %w", err)
	}
	var secret signing.Secret
	if cfg.SigningSecret != "" {
		if secret, err = signing.ParseSecret(cfg.SigningSecret); err != nil {
			return nil, fmt.Errorf("parsing signing secret: %w", err)
		}
	}

	return &Client{
		cfg:       cfg,
		server:    server,
		target:    target,
		secret:    secret,
		logger:    logger.With().Str("client_id", cfg.ClientID).Logger(),
		apiClient: &http.Client{Timeout: 15 * time.Second},
		fwdClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Run keeps a session open until ctx ends, reconnecting with backoff
func (c *Client) Run(ctx context.Context) error {
	backoff := reconnectInitialDelay
	for {
		started := time.Now()
		err := c.RunSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		var rejected *RejectedError
		if errors.As(err, &rejected) && rejected.Permanent() {
			return err
		}
		if time.Since(started) > reconnectMaxDelay {
			backoff = reconnectInitialDelay
		}
		c.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("disconnected from relay; reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, reconnectMaxDelay)
	}
}

// RunSession holds one delivery channel open until it breaks or ctx ends
func (c *Client) RunSession(ctx context.Context) error {
	pool := pond.NewPool(c.cfg.Workers)
	defer pool.StopAndWait()

	if c.cfg.Transport == TransportStream {
		return c.runStream(ctx, pool)
	}
	return c.runWebSocket(ctx, pool)
}

// RejectedError is a non-2xx answer from the relay server
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("relay answered %d: %s", e.Status, e.Body)
}

// Permanent reports whether retrying cannot help
func (e *RejectedError) Permanent() bool {
	return e.Status == http.StatusBadRequest || e.Status == http.StatusUnauthorized
}

func rejected(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &RejectedError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func (c *Client) endpoint(path string) string {
	u := *c.server
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

func (c *Client) authorize(h http.Header) {
	h.Set("x-api-key", c.cfg.APIKey)
	h.Set("x-client-id", c.cfg.ClientID)
}

// pushResponse answers a waiting caller through the action endpoint
func (c *Client) pushResponse(ctx context.Context, resp relay.PendingResponse) error {
	payload, err := json.Marshal(map[string]any{
		"action":   "response",
		"apiKey":   c.cfg.APIKey,
		"clientId": c.cfg.ClientID,
		"response": resp,
	})
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/tunnel"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req.Header)

	res, err := c.apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting response: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return rejected(res)
	}
	return nil
}

// handle forwards req and, when a caller waits, hands the response to reply
func (c *Client) handle(ctx context.Context, req relay.PendingRequest, reply func(context.Context, relay.PendingResponse) error) {
	start := time.Now()
	resp := c.forward(ctx, req)
	c.logger.Info().
		Str("request_id", req.ID).
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.Status).
		Dur("duration", time.Since(start)).
		Msg("forwarded request")

	if !req.ExpectsResponse {
		return
	}
	if err := reply(ctx, resp); err != nil {
		c.logger.Error().Err(err).Str("request_id", req.ID).Msg("failed to return response")
	}
}
