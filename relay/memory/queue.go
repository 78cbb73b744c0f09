package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
)

type mailbox struct {
	items []relay.PendingRequest
	// signal is closed and replaced on every enqueue to wake waiters
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{})}
}

// Queue is an in-process relay.Queue with one FIFO mailbox per client
type Queue struct {
	mu        sync.Mutex
	mailboxes map[relay.ClientKey]*mailbox
	maxDepth  int
}

// NewQueue creates a queue; maxDepth <= 0 means unbounded
func NewQueue(maxDepth int) *Queue {
	return &Queue{
		mailboxes: make(map[relay.ClientKey]*mailbox),
		maxDepth:  maxDepth,
	}
}

func (q *Queue) mailbox(key relay.ClientKey) *mailbox {
	mb, ok := q.mailboxes[key]
	if !ok {
		mb = newMailbox()
		q.mailboxes[key] = mb
	}
	return mb
}

// Enqueue appends req to the tail of key's mailbox
func (q *Queue) Enqueue(ctx context.Context, key relay.ClientKey, req relay.PendingRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	mb := q.mailbox(key)
	if q.maxDepth > 0 && len(mb.items) >= q.maxDepth {
		return relay.ErrQueueFull
	}
	mb.items = append(mb.items, req)
	close(mb.signal)
	mb.signal = make(chan struct{})
	return nil
}

// DequeueOne pops the head of key's mailbox
func (q *Queue) DequeueOne(ctx context.Context, key relay.ClientKey) (relay.PendingRequest, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.pop(key)
	return req, ok, nil
}

func (q *Queue) pop(key relay.ClientKey) (relay.PendingRequest, bool) {
	mb, ok := q.mailboxes[key]
	if !ok || len(mb.items) == 0 {
		return relay.PendingRequest{}, false
	}
	req := mb.items[0]
	mb.items[0] = relay.PendingRequest{}
	mb.items = mb.items[1:]
	return req, true
}

// WaitDequeue pops the head of key's mailbox, waiting up to wait for one to arrive
func (q *Queue) WaitDequeue(ctx context.Context, key relay.ClientKey, wait time.Duration) (relay.PendingRequest, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if req, ok := q.pop(key); ok {
			q.mu.Unlock()
			return req, true, nil
		}
		signal := q.mailbox(key).signal
		q.mu.Unlock()

		select {
		case <-signal:
		case <-timer.C:
			return relay.PendingRequest{}, false, nil
		case <-ctx.Done():
			return relay.PendingRequest{}, false, ctx.Err()
		}
	}
}

// Drop discards key's mailbox and wakes anyone waiting on it
func (q *Queue) Drop(ctx context.Context, key relay.ClientKey) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if mb, ok := q.mailboxes[key]; ok {
		close(mb.signal)
		delete(q.mailboxes, key)
	}
	return nil
}

// Depths returns the number of queued requests per client
func (q *Queue) Depths(ctx context.Context) (map[string]int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	depths := make(map[string]int64, len(q.mailboxes))
	for key, mb := range q.mailboxes {
		depths[key.String()] = int64(len(mb.items))
	}
	return depths, nil
}
