// Package swarm controls the replica count of a Docker Swarm service.
package swarm

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/errdefs"

	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/replica"
	"github.com/forseti-judge/autoscaler/util/dockerutil"
)

// Name is the backend name used in configuration.
const Name = "swarm"

// serviceAPI is the subset of the Docker client used here.
type serviceAPI interface {
	ServiceInspectWithRaw(ctx context.Context, serviceID string, opts types.ServiceInspectOptions) (swarm.Service, []byte, error)
	ServiceUpdate(ctx context.Context, serviceID string, version swarm.Version, service swarm.ServiceSpec, options types.ServiceUpdateOptions) (swarm.ServiceUpdateResponse, error)
	Ping(ctx context.Context) (types.Ping, error)
}

var errGlobalService = errors.New("service runs in global mode and cannot be scaled")

// Controller scales a replicated Swarm service.
type Controller struct {
	client  serviceAPI
	service string
	log     *logger.Logger
}

// NewController returns a Controller for the named service, talking to the
// daemon configured by the DOCKER_* environment variables.
func NewController(service string, log *logger.Logger) (*Controller, error) {
	cli, err := dockerutil.NewDockerClient()
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return newController(service, cli, log), nil
}

func newController(service string, cli serviceAPI, log *logger.Logger) *Controller {
	return &Controller{
		client:  cli,
		service: service,
		log:     log.WithFields("backend", Name),
	}
}

// Name returns the service name.
func (c *Controller) Name() string {
	return c.service
}

// Replicas returns the service's configured replica count.
func (c *Controller) Replicas(ctx context.Context) (int, error) {
	svc, err := c.inspect(ctx, "read replicas")
	if err != nil {
		return 0, err
	}
	return int(*svc.Spec.Mode.Replicated.Replicas), nil
}

// SetReplicas updates the service's replica count, using the inspected
// version so that a concurrent update is rejected rather than overwritten.
func (c *Controller) SetReplicas(ctx context.Context, n int) error {
	if n < 0 {
		return replica.NewOrchestrationError(c.service, "set replicas", fmt.Errorf("invalid replica count %d", n))
	}
	svc, err := c.inspect(ctx, "set replicas")
	if err != nil {
		return err
	}

	spec := svc.Spec
	replicas := uint64(n)
	spec.Mode.Replicated.Replicas = &replicas

	resp, err := c.client.ServiceUpdate(ctx, svc.ID, svc.Version, spec, types.ServiceUpdateOptions{})
	if err != nil {
		return c.wrap("set replicas", err)
	}
	for _, w := range resp.Warnings {
		c.log.Warn("Service update warning", "service", c.service, "warning", w)
	}
	return nil
}

// Probe pings the Docker daemon.
func (c *Controller) Probe(ctx context.Context) error {
	if _, err := c.client.Ping(ctx); err != nil {
		return replica.NewOrchestrationError(c.service, "probe", err)
	}
	return nil
}

func (c *Controller) inspect(ctx context.Context, op string) (swarm.Service, error) {
	svc, _, err := c.client.ServiceInspectWithRaw(ctx, c.service, types.ServiceInspectOptions{})
	if err != nil {
		return svc, c.wrap(op, err)
	}
	if svc.Spec.Mode.Global != nil {
		return svc, replica.NewOrchestrationError(c.service, op, errGlobalService)
	}
	if svc.Spec.Mode.Replicated == nil || svc.Spec.Mode.Replicated.Replicas == nil {
		return svc, replica.NewOrchestrationError(c.service, op, errors.New("service is not in replicated mode"))
	}
	return svc, nil
}

func (c *Controller) wrap(op string, err error) error {
	if errdefs.IsNotFound(err) {
		return replica.NewNotFoundError(c.service, op, err)
	}
	return replica.NewOrchestrationError(c.service, op, err)
}
