package relay

import (
	"context"
	"time"
)

/* Small, focused interfaces, one per shared structure
 * Each implementation owns its own synchronization
 */

// Registry tracks connected clients and their last heartbeat
type Registry interface {
	Register(ctx context.Context, key ClientKey) error
	Heartbeat(ctx context.Context, key ClientKey) error
	IsLive(ctx context.Context, key ClientKey) (bool, error)
	/* Sweep removes every registration whose last heartbeat is at least
	 * the client timeout older than now, returning the removed keys
	 */
	Sweep(ctx context.Context, now time.Time) ([]ClientKey, error)
	Unregister(ctx context.Context, key ClientKey) error
	// List returns the live registrations of an API key, most recent first
	List(ctx context.Context, apiKey string) ([]Registration, error)
}

// Queue is a per-client FIFO mailbox of pending requests
type Queue interface {
	// Enqueue appends to the tail, returning ErrQueueFull at the depth cap
	Enqueue(ctx context.Context, key ClientKey, req PendingRequest) error
	/* DequeueOne pops the head of the queue
	 * An empty queue yields ok=false and a nil error
	 */
	DequeueOne(ctx context.Context, key ClientKey) (PendingRequest, bool, error)
	// WaitDequeue is DequeueOne that blocks up to wait for a request to arrive
	WaitDequeue(ctx context.Context, key ClientKey, wait time.Duration) (PendingRequest, bool, error)
	// Drop discards everything queued for a client
	Drop(ctx context.Context, key ClientKey) error
	// Depths returns the queue length per client key string
	Depths(ctx context.Context) (map[string]int64, error)
}

// Correlator matches client responses to the inbound calls waiting for them
type Correlator interface {
	// Expect reserves a slot for requestID owned by the given client
	Expect(ctx context.Context, requestID string, owner ClientKey) error
	/* Await blocks until the response for requestID is submitted,
	 * ctx is cancelled, or timeout elapses (ErrTimeout)
	 */
	Await(ctx context.Context, requestID string, timeout time.Duration) (PendingResponse, error)
	// Submit hands a response to its waiter; ErrUnknownRequest if there is none
	Submit(ctx context.Context, owner ClientKey, resp PendingResponse) error
	// Cancel releases the slot for requestID
	Cancel(ctx context.Context, requestID string) error
	/* FailOwner wakes every waiter whose request is owned by owner with
	 * ErrClientUnavailable; used when the owner disconnects or is swept
	 */
	FailOwner(ctx context.Context, owner ClientKey) error
	// Pending returns the number of reserved slots
	Pending(ctx context.Context) (int64, error)
}

/* Backend groups the three structures so storage implementations
 * can be swapped as a unit (in-memory or Redis)
 */
type Backend interface {
	Registry() Registry
	Queue() Queue
	Correlator() Correlator
	Close(ctx context.Context) error
}
