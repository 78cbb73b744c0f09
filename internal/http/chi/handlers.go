package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/record"
	"github.com/marcelsud/webhook-relay/relay"
	"github.com/marcelsud/webhook-relay/tunnel"
	"github.com/rs/zerolog"
)

// TunnelStore resolves API keys and creates new ones at runtime
type TunnelStore interface {
	tunnel.Lookup
	Create(name string) (*tunnel.Tunnel, error)
}

// RecordSink takes completed records off the request path
type RecordSink interface {
	Submit(rec record.Record)
}

// Deps are the collaborators of the HTTP layer
type Deps struct {
	Relay   relay.UseCase
	Records record.UseCase
	Saver   RecordSink
	Tunnels TunnelStore
	// Metrics serves /metrics when set
	Metrics   http.Handler
	Logger    zerolog.Logger
	RateLimit RateLimit
	// PollWait bounds each blocking dequeue of the stream transports
	PollWait time.Duration
}

const defaultPollWait = 25 * time.Second

/* Handlers sets up the relay API routes
 * Relay and tunnel routes block for long periods, so no request timeout
 * middleware is installed; every wait is bounded by the relay service
 */
func Handlers(ctx context.Context, deps Deps) *chi.Mux {
	if deps.PollWait <= 0 {
		deps.PollWait = defaultPollWait
	}
	limiter := newKeyLimiter(deps.RateLimit, deps.Tunnels)

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(limiter.middleware).Handle("/webhook", receiveWebhook(deps))
		r.With(limiter.middleware).Handle("/webhook/*", receiveWebhook(deps))
		r.With(limiter.middleware).Handle("/relay/*", relayRequest(deps))

		r.Get("/tunnel/connect", connectStream(ctx, deps))
		r.Get("/tunnel/ws", connectWebSocket(ctx, deps))
		r.Get("/tunnel/poll", pollRequest(deps))
		r.With(limiter.middleware).Post("/tunnel", tunnelAction(deps))

		r.Get("/requests", listRecords(deps))
	})

	return r
}
