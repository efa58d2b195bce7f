// Package rabbitmq reads queue backlogs from the RabbitMQ management HTTP API.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	rabbithole "github.com/michaelklishin/rabbit-hole/v2"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/queue"
)

// Name is the backend name used in configuration.
const Name = "rabbitmq"

// managementAPI is the subset of the rabbit-hole client used here.
type managementAPI interface {
	GetQueue(vhost, queue string) (*rabbithole.DetailedQueueInfo, error)
	Overview() (*rabbithole.Overview, error)
}

// Source reports a RabbitMQ queue's ready plus unacknowledged message count.
type Source struct {
	client managementAPI
	vhost  string
	queue  string
}

// NewSource returns a Source for the given queue, authenticating to the
// management API with basic auth.
func NewSource(queueName string, conf config.RabbitMQ) (*Source, error) {
	client, err := rabbithole.NewClient(conf.ManagementURL(), conf.User, conf.Password)
	if err != nil {
		return nil, fmt.Errorf("creating rabbitmq management client: %w", err)
	}
	client.SetTimeout(time.Duration(conf.Timeout))
	return &Source{
		client: client,
		vhost:  conf.VHost,
		queue:  queueName,
	}, nil
}

// Name returns the queue name.
func (s *Source) Name() string {
	return s.queue
}

// Backlog returns messages_ready + messages_unacknowledged.
//
// The rabbit-hole client does not take a context; its own timeout bounds the call.
func (s *Source) Backlog(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, queue.NewConnectivityError(s.queue, "read backlog", err)
	}
	info, err := s.client.GetQueue(s.vhost, s.queue)
	if err != nil {
		return 0, queue.NewConnectivityError(s.queue, "read backlog", err)
	}
	n := info.MessagesReady + info.MessagesUnacknowledged
	if n < 0 {
		n = 0
	}
	return n, nil
}

// Probe checks that the management API answers and accepts the credentials.
func (s *Source) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return queue.NewConnectivityError(s.queue, "probe", err)
	}
	if _, err := s.client.Overview(); err != nil {
		return queue.NewConnectivityError(s.queue, "probe", err)
	}
	return nil
}
