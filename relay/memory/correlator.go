package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
)

type slot struct {
	owner relay.ClientKey
	ch    chan relay.PendingResponse
	// failed is closed when the owner goes away before answering
	failed chan struct{}
	// answered guards ch and failed so a request settles exactly once
	answered bool
}

/* Correlator is an in-process relay.Correlator
 * Each expected request owns a one-slot channel, so Submit wakes
 * its waiter immediately
 */
type Correlator struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewCorrelator creates an empty correlator
func NewCorrelator() *Correlator {
	return &Correlator{slots: make(map[string]*slot)}
}

// Expect reserves a slot for requestID
func (c *Correlator) Expect(ctx context.Context, requestID string, owner relay.ClientKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.slots[requestID]; exists {
		return fmt.Errorf("request %s is already awaited", requestID)
	}
	c.slots[requestID] = &slot{
		owner:  owner,
		ch:     make(chan relay.PendingResponse, 1),
		failed: make(chan struct{}),
	}
	return nil
}

// Await blocks until the response for requestID is submitted or timeout elapses
func (c *Correlator) Await(ctx context.Context, requestID string, timeout time.Duration) (relay.PendingResponse, error) {
	c.mu.Lock()
	sl, ok := c.slots[requestID]
	c.mu.Unlock()
	if !ok {
		return relay.PendingResponse{}, relay.ErrUnknownRequest
	}
	defer c.release(requestID, sl)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-sl.ch:
		return resp, nil
	case <-sl.failed:
		return relay.PendingResponse{}, relay.ErrClientUnavailable
	case <-timer.C:
		return relay.PendingResponse{}, relay.ErrTimeout
	case <-ctx.Done():
		return relay.PendingResponse{}, ctx.Err()
	}
}

/* Submit hands resp to the waiter of resp.RequestID if owner matches
 * The slot stays until its waiter releases it, so a response may land
 * before Await starts
 */
func (c *Correlator) Submit(ctx context.Context, owner relay.ClientKey, resp relay.PendingResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sl, ok := c.slots[resp.RequestID]
	if !ok || sl.owner != owner || sl.answered {
		return relay.ErrUnknownRequest
	}
	sl.answered = true
	sl.ch <- resp
	return nil
}

// FailOwner settles every unanswered slot of owner with ErrClientUnavailable
func (c *Correlator) FailOwner(ctx context.Context, owner relay.ClientKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sl := range c.slots {
		if sl.owner != owner || sl.answered {
			continue
		}
		sl.answered = true
		close(sl.failed)
	}
	return nil
}

// Cancel releases the slot for requestID
func (c *Correlator) Cancel(ctx context.Context, requestID string) error {
	c.mu.Lock()
	delete(c.slots, requestID)
	c.mu.Unlock()
	return nil
}

// Pending returns the number of reserved slots
func (c *Correlator) Pending(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.slots)), nil
}

func (c *Correlator) release(requestID string, sl *slot) {
	c.mu.Lock()
	if c.slots[requestID] == sl {
		delete(c.slots, requestID)
	}
	c.mu.Unlock()
}
