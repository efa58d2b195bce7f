// Package queue defines the backlog source consumed by the autoscaler.
package queue

import (
	"context"
	"fmt"
)

// Source reports how many messages are waiting in a queue.
type Source interface {
	// Backlog returns the number of pending and unacknowledged messages.
	Backlog(ctx context.Context) (int, error)
	// Probe performs a lightweight reachability check of the backend.
	Probe(ctx context.Context) error
	// Name returns the name of the monitored queue.
	Name() string
}

// ConnectivityError is returned when the queue backend is unreachable or
// rejects the request.
type ConnectivityError struct {
	Queue string
	Op    string
	Err   error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("queue %q: %s: %v", e.Queue, e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NewConnectivityError wraps err for the given queue and operation.
func NewConnectivityError(queue, op string, err error) error {
	return &ConnectivityError{Queue: queue, Op: op, Err: err}
}
