// Package ecs controls the desired count of an Amazon ECS service.
package ecs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ecs"
	"github.com/aws/aws-sdk-go/service/ecs/ecsiface"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/replica"
	awsutil "github.com/forseti-judge/autoscaler/util/aws"
)

// Name is the backend name used in configuration.
const Name = "ecs"

// Controller scales an ECS service through its desiredCount.
type Controller struct {
	client  ecsiface.ECSAPI
	cluster string
	service string
}

// NewController returns a Controller for the named service.
func NewController(service string, conf config.ECS, awsConf config.AWS) (*Controller, error) {
	sess, err := awsutil.NewAWSSession(awsConf)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return NewControllerWithClient(service, conf.Cluster, ecs.New(sess)), nil
}

// NewControllerWithClient returns a Controller using an existing ECS client.
func NewControllerWithClient(service, cluster string, client ecsiface.ECSAPI) *Controller {
	return &Controller{
		client:  client,
		cluster: cluster,
		service: service,
	}
}

// Name returns the service name.
func (c *Controller) Name() string {
	return c.service
}

// Replicas returns the service's desired count.
func (c *Controller) Replicas(ctx context.Context) (int, error) {
	out, err := c.client.DescribeServicesWithContext(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(c.cluster),
		Services: []*string{aws.String(c.service)},
	})
	if err != nil {
		return 0, c.wrap("read replicas", err)
	}
	if len(out.Failures) > 0 {
		reason := aws.StringValue(out.Failures[0].Reason)
		if reason == "MISSING" {
			return 0, replica.NewNotFoundError(c.service, "read replicas", fmt.Errorf("cluster %q", c.cluster))
		}
		return 0, replica.NewOrchestrationError(c.service, "read replicas", errors.New(reason))
	}
	if len(out.Services) == 0 {
		return 0, replica.NewNotFoundError(c.service, "read replicas", fmt.Errorf("cluster %q", c.cluster))
	}
	svc := out.Services[0]
	if aws.StringValue(svc.Status) == "INACTIVE" {
		return 0, replica.NewNotFoundError(c.service, "read replicas", errors.New("service is inactive"))
	}
	return int(aws.Int64Value(svc.DesiredCount)), nil
}

// SetReplicas updates the service's desired count.
func (c *Controller) SetReplicas(ctx context.Context, n int) error {
	if n < 0 {
		return replica.NewOrchestrationError(c.service, "set replicas", fmt.Errorf("invalid replica count %d", n))
	}
	_, err := c.client.UpdateServiceWithContext(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(c.cluster),
		Service:      aws.String(c.service),
		DesiredCount: aws.Int64(int64(n)),
	})
	if err != nil {
		return c.wrap("set replicas", err)
	}
	return nil
}

// Probe checks that the cluster exists and the credentials are accepted.
func (c *Controller) Probe(ctx context.Context) error {
	out, err := c.client.DescribeClustersWithContext(ctx, &ecs.DescribeClustersInput{
		Clusters: []*string{aws.String(c.cluster)},
	})
	if err != nil {
		return replica.NewOrchestrationError(c.service, "probe", err)
	}
	if len(out.Clusters) == 0 {
		return replica.NewOrchestrationError(c.service, "probe", fmt.Errorf("cluster %q not found", c.cluster))
	}
	return nil
}

func (c *Controller) wrap(op string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case ecs.ErrCodeServiceNotFoundException, ecs.ErrCodeServiceNotActiveException, ecs.ErrCodeClusterNotFoundException:
			return replica.NewNotFoundError(c.service, op, err)
		}
	}
	return replica.NewOrchestrationError(c.service, op, err)
}
