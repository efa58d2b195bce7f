// Package kubernetes controls the replica count of a Kubernetes Deployment.
package kubernetes

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/replica"
	"github.com/forseti-judge/autoscaler/util/k8sutil"
)

// Name is the backend name used in configuration.
const Name = "kubernetes"

// Controller scales a Deployment through spec.replicas.
type Controller struct {
	client     kubernetes.Interface
	namespace  string
	deployment string
}

// NewController returns a Controller for the named Deployment.
func NewController(deployment string, conf config.Kubernetes) (*Controller, error) {
	client, err := k8sutil.NewK8sClient(conf)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return NewControllerWithClient(deployment, conf.Namespace, client), nil
}

// NewControllerWithClient returns a Controller using an existing client.
func NewControllerWithClient(deployment, namespace string, client kubernetes.Interface) *Controller {
	return &Controller{
		client:     client,
		namespace:  namespace,
		deployment: deployment,
	}
}

// Name returns the Deployment name.
func (c *Controller) Name() string {
	return c.deployment
}

// Replicas returns the Deployment's desired replica count.
func (c *Controller) Replicas(ctx context.Context) (int, error) {
	d, err := c.client.AppsV1().Deployments(c.namespace).Get(ctx, c.deployment, metav1.GetOptions{})
	if err != nil {
		return 0, c.wrap("read replicas", err)
	}
	// The API server defaults a nil spec.replicas to 1.
	if d.Spec.Replicas == nil {
		return 1, nil
	}
	return int(*d.Spec.Replicas), nil
}

// SetReplicas updates spec.replicas, retrying on write conflicts with
// other controllers.
func (c *Controller) SetReplicas(ctx context.Context, n int) error {
	if n < 0 {
		return replica.NewOrchestrationError(c.deployment, "set replicas", fmt.Errorf("invalid replica count %d", n))
	}
	deployments := c.client.AppsV1().Deployments(c.namespace)
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		d, err := deployments.Get(ctx, c.deployment, metav1.GetOptions{})
		if err != nil {
			return err
		}
		replicas := int32(n)
		d.Spec.Replicas = &replicas
		_, err = deployments.Update(ctx, d, metav1.UpdateOptions{FieldManager: "autoscaler"})
		return err
	})
	if err != nil {
		return c.wrap("set replicas", err)
	}
	return nil
}

// Probe queries the API server version.
func (c *Controller) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return replica.NewOrchestrationError(c.deployment, "probe", err)
	}
	if _, err := c.client.Discovery().ServerVersion(); err != nil {
		return replica.NewOrchestrationError(c.deployment, "probe", err)
	}
	return nil
}

func (c *Controller) wrap(op string, err error) error {
	if apierrors.IsNotFound(err) {
		return replica.NewNotFoundError(c.deployment, op, err)
	}
	return replica.NewOrchestrationError(c.deployment, op, err)
}
