// Package replica defines the container service controller driven by the autoscaler.
package replica

import (
	"context"
	"fmt"
)

// Controller reads and sets the replica count of a single service.
type Controller interface {
	// Replicas returns the service's current replica count.
	Replicas(ctx context.Context) (int, error)
	// SetReplicas sets the service's replica count.
	SetReplicas(ctx context.Context, n int) error
	// Probe performs a lightweight reachability check of the backend.
	Probe(ctx context.Context) error
	// Name returns the name of the controlled service.
	Name() string
}

// OrchestrationError is returned when the orchestration backend is
// unreachable, rejects the request, or the service does not exist.
type OrchestrationError struct {
	Service  string
	Op       string
	NotFound bool
	Err      error
}

func (e *OrchestrationError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("service %q: %s: not found: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("service %q: %s: %v", e.Service, e.Op, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// NewOrchestrationError wraps err for the given service and operation.
func NewOrchestrationError(service, op string, err error) error {
	return &OrchestrationError{Service: service, Op: op, Err: err}
}

// NewNotFoundError reports that the service does not exist.
func NewNotFoundError(service, op string, err error) error {
	return &OrchestrationError{Service: service, Op: op, NotFound: true, Err: err}
}
