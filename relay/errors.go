package relay

import "errors"

// Sentinel errors matched with errors.Is at the HTTP boundary
var (
	// ErrClientUnavailable means the target client is not registered or not live
	ErrClientUnavailable = errors.New("client not connected")

	// ErrQueueFull is returned when a client's queue reached its depth cap
	ErrQueueFull = errors.New("client queue is full")

	// ErrTimeout means no response arrived within the wait bound
	ErrTimeout = errors.New("timed out waiting for client response")

	// ErrUnknownRequest means a response references no waiting request
	ErrUnknownRequest = errors.New("no pending request for response")
)
