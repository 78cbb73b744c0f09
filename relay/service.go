package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxPollWait    = 25 * time.Second
)

/* Service is the delivery channel and dispatch layer of the relay
 * Uses pointer semantics as it's an API, not data
 */

// UseCase defines the operations exposed to inbound handlers and clients
type UseCase interface {
	Connect(ctx context.Context, key ClientKey) error
	Disconnect(ctx context.Context, key ClientKey) error
	PollNext(ctx context.Context, key ClientKey, wait time.Duration) (PendingRequest, bool, error)
	PushResult(ctx context.Context, key ClientKey, resp PendingResponse) error
	Dispatch(ctx context.Context, req PendingRequest, timeout time.Duration) (PendingResponse, error)
	Deliver(ctx context.Context, req PendingRequest) (PendingRequest, bool, error)
	Clients(ctx context.Context, apiKey string) ([]Registration, error)
}

// Observer receives the outcome of every dispatch
type Observer interface {
	ObserveDispatch(ctx context.Context, outcome Outcome, elapsed time.Duration)
}

// Options tunes a Service; zero values fall back to defaults
type Options struct {
	RequestTimeout time.Duration
	MaxPollWait    time.Duration
	Observer       Observer
}

type Service struct {
	registry   Registry
	queue      Queue
	correlator Correlator
	opts       Options
	logger     zerolog.Logger
}

// NewService creates a relay service over the given backend
func NewService(backend Backend, logger zerolog.Logger, opts Options) *Service {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.MaxPollWait <= 0 {
		opts.MaxPollWait = DefaultMaxPollWait
	}
	return &Service{
		registry:   backend.Registry(),
		queue:      backend.Queue(),
		correlator: backend.Correlator(),
		opts:       opts,
		logger:     logger.With().Str("component", "relay").Logger(),
	}
}

// RequestTimeout returns the configured dispatch bound
func (s *Service) RequestTimeout() time.Duration {
	return s.opts.RequestTimeout
}

// Connect registers a client when its delivery channel is established
func (s *Service) Connect(ctx context.Context, key ClientKey) error {
	if err := key.Validate(); err != nil {
		return fmt.Errorf("validating client key: %w", err)
	}
	if err := s.registry.Register(ctx, key); err != nil {
		return fmt.Errorf("registering client: %w", err)
	}
	s.logger.Info().
		Str("client", key.String()).
		Str("state", Connected.String()).
		Msg("client connected")
	return nil
}

/* Disconnect unregisters a client and drops whatever is still queued for it
 * Callers waiting on the client's requests fail with ErrClientUnavailable
 */
func (s *Service) Disconnect(ctx context.Context, key ClientKey) error {
	if err := s.registry.Unregister(ctx, key); err != nil {
		return fmt.Errorf("unregistering client: %w", err)
	}
	if err := s.queue.Drop(ctx, key); err != nil {
		return fmt.Errorf("dropping client queue: %w", err)
	}
	if err := s.correlator.FailOwner(ctx, key); err != nil {
		return fmt.Errorf("releasing client waiters: %w", err)
	}
	s.logger.Info().
		Str("client", key.String()).
		Str("state", Disconnected.String()).
		Msg("client disconnected")
	return nil
}

// PollNext refreshes the client's heartbeat and hands it the next queued request
func (s *Service) PollNext(ctx context.Context, key ClientKey, wait time.Duration) (PendingRequest, bool, error) {
	if err := key.Validate(); err != nil {
		return PendingRequest{}, false, fmt.Errorf("validating client key: %w", err)
	}
	if err := s.registry.Heartbeat(ctx, key); err != nil {
		return PendingRequest{}, false, fmt.Errorf("refreshing heartbeat: %w", err)
	}
	if wait > s.opts.MaxPollWait {
		wait = s.opts.MaxPollWait
	}

	var (
		req PendingRequest
		ok  bool
		err error
	)
	if wait <= 0 {
		req, ok, err = s.queue.DequeueOne(ctx, key)
	} else {
		req, ok, err = s.queue.WaitDequeue(ctx, key, wait)
	}
	if err != nil {
		return PendingRequest{}, false, fmt.Errorf("dequeuing request: %w", err)
	}
	return req, ok, nil
}

// PushResult submits a client's response to the inbound call waiting for it
func (s *Service) PushResult(ctx context.Context, key ClientKey, resp PendingResponse) error {
	if resp.RequestID == "" {
		return fmt.Errorf("request id is required: %w", ErrUnknownRequest)
	}
	if resp.Status != 0 && (resp.Status < 100 || resp.Status > 999) {
		s.logger.Warn().
			Str("client", key.String()).
			Str("request_id", resp.RequestID).
			Int("status", resp.Status).
			Msg("client answered with an invalid status")
		resp = invalidStatusResponse(resp.RequestID)
	}
	if err := s.registry.Heartbeat(ctx, key); err != nil {
		return fmt.Errorf("refreshing heartbeat: %w", err)
	}
	if err := s.correlator.Submit(ctx, key, resp); err != nil {
		return fmt.Errorf("submitting response: %w", err)
	}
	return nil
}

/* Dispatch enqueues req for its client and blocks until the client's
 * response arrives or timeout elapses
 * The request is abandoned on timeout, there is no redelivery
 */
func (s *Service) Dispatch(ctx context.Context, req PendingRequest, timeout time.Duration) (PendingResponse, error) {
	start := time.Now()
	resp, err := s.dispatch(ctx, req, timeout)
	if s.opts.Observer != nil {
		s.opts.Observer.ObserveDispatch(ctx, OutcomeOf(err), time.Since(start))
	}
	return resp, err
}

func (s *Service) dispatch(ctx context.Context, req PendingRequest, timeout time.Duration) (PendingResponse, error) {
	if timeout <= 0 || timeout > s.opts.RequestTimeout {
		timeout = s.opts.RequestTimeout
	}
	if err := req.Client.Validate(); err != nil {
		return PendingResponse{}, fmt.Errorf("validating client key: %w", err)
	}

	live, err := s.registry.IsLive(ctx, req.Client)
	if err != nil {
		return PendingResponse{}, fmt.Errorf("checking client liveness: %w", err)
	}
	if !live {
		return PendingResponse{}, ErrClientUnavailable
	}

	req = prepare(req, true)
	if err := s.correlator.Expect(ctx, req.ID, req.Client); err != nil {
		return PendingResponse{}, fmt.Errorf("reserving correlation slot: %w", err)
	}
	if err := s.queue.Enqueue(ctx, req.Client, req); err != nil {
		s.cancel(req.ID)
		return PendingResponse{}, fmt.Errorf("enqueuing request: %w", err)
	}

	resp, err := s.correlator.Await(ctx, req.ID, timeout)
	if err != nil {
		s.cancel(req.ID)
		if errors.Is(err, ErrTimeout) {
			s.logger.Warn().
				Str("client", req.Client.String()).
				Str("request_id", req.ID).
				Dur("timeout", timeout).
				Msg("request abandoned after timeout")
		}
		return PendingResponse{}, fmt.Errorf("awaiting response: %w", err)
	}
	return resp, nil
}

/* Deliver queues req without waiting for a response
 * With no client id the most recently seen live client of the API key is used
 * When no client is live nothing is queued and ok is false
 */
func (s *Service) Deliver(ctx context.Context, req PendingRequest) (PendingRequest, bool, error) {
	if req.Client.ClientID == "" {
		clients, err := s.registry.List(ctx, req.Client.APIKey)
		if err != nil {
			return PendingRequest{}, false, fmt.Errorf("listing clients: %w", err)
		}
		if len(clients) == 0 {
			return PendingRequest{}, false, nil
		}
		req.Client = clients[0].Key
	} else {
		live, err := s.registry.IsLive(ctx, req.Client)
		if err != nil {
			return PendingRequest{}, false, fmt.Errorf("checking client liveness: %w", err)
		}
		if !live {
			return PendingRequest{}, false, nil
		}
	}

	req = prepare(req, false)
	if err := s.queue.Enqueue(ctx, req.Client, req); err != nil {
		return PendingRequest{}, false, fmt.Errorf("enqueuing request: %w", err)
	}
	return req, true, nil
}

// Clients lists the live clients of an API key
func (s *Service) Clients(ctx context.Context, apiKey string) ([]Registration, error) {
	clients, err := s.registry.List(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return clients, nil
}

func (s *Service) cancel(requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.correlator.Cancel(ctx, requestID); err != nil {
		s.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to release correlation slot")
	}
}

// invalidStatusResponse replaces a client answer whose status cannot be written
func invalidStatusResponse(requestID string) PendingResponse {
	return PendingResponse{
		RequestID: requestID,
		Status:    http.StatusBadGateway,
		Headers:   map[string]string{"content-type": "text/plain; charset=utf-8"},
		Body:      []byte("Client returned an invalid status code"),
	}
}

func prepare(req PendingRequest, expectsResponse bool) PendingRequest {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.ExpectsResponse = expectsResponse
	return req
}

// OutcomeOf classifies a dispatch error
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Delivered
	case errors.Is(err, ErrTimeout):
		return TimedOut
	case errors.Is(err, ErrClientUnavailable):
		return Unavailable
	case errors.Is(err, ErrQueueFull):
		return Rejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	default:
		return Failed
	}
}
