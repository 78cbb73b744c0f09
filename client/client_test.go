package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	relayhttp "github.com/marcelsud/webhook-relay/internal/http/chi"
	"github.com/marcelsud/webhook-relay/record"
	recordmemory "github.com/marcelsud/webhook-relay/record/memory"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/memory"
	"github.com/marcelsud/webhook-relay/signing"
	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "whr_client"

func newRelayServer(t *testing.T) (*httptest.Server, *relay.Service) {
	t.Helper()
	tunnels := tunnel.NewLoader()
	tn, err := tunnel.New(testKey, "client-test", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, tunnels.Add(tn))

	service := relay.NewService(memory.NewBackend(30*time.Second, 10), zerolog.Nop(), relay.Options{
		RequestTimeout: 3 * time.Second,
		MaxPollWait:    time.Second,
	})
	records := record.NewService(recordmemory.NewRepository(10), nil, zerolog.Nop())
	srv := httptest.NewServer(relayhttp.Handlers(context.Background(), relayhttp.Deps{
		Relay:    service,
		Records:  records,
		Tunnels:  tunnels,
		Logger:   zerolog.Nop(),
		PollWait: 200 * time.Millisecond,
	}))
	t.Cleanup(srv.Close)
	return srv, service
}

func waitConnected(t *testing.T, service *relay.Service) {
	t.Helper()
	require.Eventually(t, func() bool {
		clients, err := service.Clients(context.Background(), testKey)
		return err == nil && len(clients) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestClient_RoundTrip(t *testing.T) {
	for _, transport := range []string{TransportWebSocket, TransportStream} {
		t.Run(transport, func(t *testing.T) {
			var async atomic.Int32
			target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				if r.URL.Path == "/hooks/async" {
					async.Add(1)
				}
				assert.Empty(t, r.Header.Get("x-api-key"))
				w.Header().Set("X-Target", "local")
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(r.Method + " " + r.URL.RequestURI() + " " + string(body)))
			}))
			defer target.Close()

			srv, service := newRelayServer(t)
			c, err := New(Config{
				ServerURL: srv.URL,
				APIKey:    testKey,
				ClientID:  "dev",
				Target:    target.URL,
				Transport: transport,
			}, zerolog.Nop())
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- c.Run(ctx) }()
			waitConnected(t, service)

			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/relay/hooks/sync?client=dev&x=1", strings.NewReader("payload"))
			req.Header.Set("x-api-key", testKey)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, "local", resp.Header.Get("X-Target"))
			assert.Equal(t, "POST /hooks/sync?x=1 payload", string(body))

			webhook, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/webhook/hooks/async?key="+testKey, strings.NewReader("{}"))
			resp, err = http.DefaultClient.Do(webhook)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, http.StatusAccepted, resp.StatusCode)
			require.Eventually(t, func() bool { return async.Load() == 1 }, 3*time.Second, 20*time.Millisecond)

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(3 * time.Second):
				t.Fatal("client did not stop")
			}
		})
	}
}

func TestClient_RejectedKeyStopsRun(t *testing.T) {
	srv, _ := newRelayServer(t)
	c, err := New(Config{
		ServerURL: srv.URL,
		APIKey:    "whr_unknown",
		ClientID:  "dev",
		Target:    "http://127.0.0.1:1",
		Transport: TransportStream,
	}, zerolog.Nop())
	require.NoError(t, err)

	err = c.Run(context.Background())
	var rejectedErr *RejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, http.StatusUnauthorized, rejectedErr.Status)
}

func TestForward_TargetDown(t *testing.T) {
	c, err := New(Config{
		ServerURL: "http://relay.invalid",
		APIKey:    testKey,
		ClientID:  "dev",
		Target:    "http://127.0.0.1:1",
	}, zerolog.Nop())
	require.NoError(t, err)

	resp := c.forward(context.Background(), relay.PendingRequest{ID: "r1", Method: http.MethodGet, URL: "/x"})
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{ServerURL: "http://relay", APIKey: "k", ClientID: "c", Target: "http://localhost:3000", Transport: TransportWebSocket}
	assert.NoError(t, valid.Validate())

	cases := map[string]func(*Config){
		"missing server":    func(c *Config) { c.ServerURL = "" },
		"missing target":    func(c *Config) { c.Target = "" },
		"missing client id": func(c *Config) { c.ClientID = "" },
		"unknown transport": func(c *Config) { c.Transport = "carrier-pigeon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAdmin(t *testing.T) {
	srv, service := newRelayServer(t)
	admin := Admin{ServerURL: srv.URL}

	key, err := admin.CreateAPIKey(context.Background(), "laptop")
	require.NoError(t, err)
	assert.Equal(t, "laptop", key.Name)
	assert.NotEmpty(t, key.APIKey)

	require.NoError(t, service.Connect(context.Background(), relay.ClientKey{APIKey: testKey, ClientID: "dev"}))
	peers, err := admin.ListClients(context.Background(), testKey)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "dev", peers[0].ClientID)

	_, err = admin.ListClients(context.Background(), "whr_unknown")
	var rejectedErr *RejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, http.StatusUnauthorized, rejectedErr.Status)
}

func TestForward_Signed(t *testing.T) {
	encoded, err := signing.GenerateSecret()
	require.NoError(t, err)
	secret, err := signing.ParseSecret(encoded)
	require.NoError(t, err)

	verified := make(chan error, 1)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		verified <- secret.Verify(r.Header, body, time.Minute, time.Now())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	c, err := New(Config{
		ServerURL:     "http://relay.invalid",
		APIKey:        testKey,
		ClientID:      "dev",
		Target:        target.URL,
		SigningSecret: encoded,
	}, zerolog.Nop())
	require.NoError(t, err)

	resp := c.forward(context.Background(), relay.PendingRequest{
		ID:     "0b5a7c1e-8f0a-4d1b-9c53-0e6f2f3d9a11",
		Method: http.MethodPost,
		URL:    "/hooks/signed",
		Body:   []byte(`{"ok":true}`),
	})
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.NoError(t, <-verified)

	_, err = New(Config{ServerURL: "http://relay", APIKey: "k", ClientID: "c", Target: "http://t", SigningSecret: "nope"}, zerolog.Nop())
	assert.Error(t, err)
}
