package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/relay/memory"
	"github.com/marcelsud/webhook-relay/tunnel"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) (*RelayCollector, *memory.Backend) {
	t.Helper()
	backend := memory.NewBackend(30*time.Second, 10)
	loader := tunnel.NewLoader()
	tn, err := tunnel.New("key-1", "payments", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, loader.Add(tn))
	return NewRelayCollector(backend, loader), backend
}

func TestRelayCollector_Collect(t *testing.T) {
	ctx := context.Background()
	collector, backend := newTestCollector(t)
	key := relay.ClientKey{APIKey: "key-1", ClientID: "laptop"}

	require.NoError(t, backend.Registry().Register(ctx, key))
	require.NoError(t, backend.Queue().Enqueue(ctx, key, relay.PendingRequest{ID: "r1", Client: key}))
	require.NoError(t, backend.Correlator().Expect(ctx, "r1", key))

	t.Run("success - snapshot reflects backend state", func(t *testing.T) {
		m, err := collector.Collect(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), m.QueueDepths["key-1:laptop"])
		assert.Equal(t, int64(1), m.LiveClients["payments"])
		assert.Equal(t, int64(1), m.PendingCorrelations)
		assert.False(t, m.Timestamp.IsZero())
	})

	t.Run("success - no tunnels means no client counts", func(t *testing.T) {
		c := NewRelayCollector(backend, nil)
		clients, err := c.GetLiveClients(ctx)
		require.NoError(t, err)
		assert.Empty(t, clients)
	})
}

func TestOTelExporter_ServeHTTP(t *testing.T) {
	ctx := context.Background()
	collector, backend := newTestCollector(t)
	key := relay.ClientKey{APIKey: "key-1", ClientID: "laptop"}
	require.NoError(t, backend.Queue().Enqueue(ctx, key, relay.PendingRequest{ID: "r1", Client: key}))

	exporter, err := NewOTelExporterWithRegistry(collector, promclient.NewRegistry())
	require.NoError(t, err)
	defer exporter.Shutdown(ctx)

	exporter.ObserveDispatch(ctx, relay.Delivered, 120*time.Millisecond)
	exporter.ObserveDispatch(ctx, relay.TimedOut, 30*time.Second)

	rec := httptest.NewRecorder()
	exporter.ServeHTTP().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "relay_dispatches_total")
	assert.Contains(t, body, `outcome="timed_out"`)
	assert.Contains(t, body, "relay_queue_depth")
}
