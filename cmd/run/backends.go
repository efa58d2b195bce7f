package run

import (
	"fmt"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/queue"
	"github.com/forseti-judge/autoscaler/queue/kafka"
	"github.com/forseti-judge/autoscaler/queue/rabbitmq"
	"github.com/forseti-judge/autoscaler/queue/sqs"
	"github.com/forseti-judge/autoscaler/replica"
	"github.com/forseti-judge/autoscaler/replica/ecs"
	"github.com/forseti-judge/autoscaler/replica/kubernetes"
	"github.com/forseti-judge/autoscaler/replica/swarm"
)

// SourceLoader maps queue backend names to constructors.
type SourceLoader map[string]func(config.Config) (queue.Source, error)

// ControllerLoader maps replica backend names to constructors.
type ControllerLoader map[string]func(config.Config, *logger.Logger) (replica.Controller, error)

// Sources lists the available queue backends.
var Sources = SourceLoader{
	rabbitmq.Name: func(c config.Config) (queue.Source, error) {
		s, err := rabbitmq.NewSource(c.QueueName, c.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	sqs.Name: func(c config.Config) (queue.Source, error) {
		s, err := sqs.NewSource(c.QueueName, c.AWS)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	kafka.Name: func(c config.Config) (queue.Source, error) {
		s, err := kafka.NewSource(c.QueueName, c.Kafka)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
}

// Controllers lists the available replica backends.
var Controllers = ControllerLoader{
	swarm.Name: func(c config.Config, log *logger.Logger) (replica.Controller, error) {
		ctrl, err := swarm.NewController(c.ServiceName, log)
		if err != nil {
			return nil, err
		}
		return ctrl, nil
	},
	kubernetes.Name: func(c config.Config, _ *logger.Logger) (replica.Controller, error) {
		ctrl, err := kubernetes.NewController(c.ServiceName, c.Kubernetes)
		if err != nil {
			return nil, err
		}
		return ctrl, nil
	},
	ecs.Name: func(c config.Config, _ *logger.Logger) (replica.Controller, error) {
		ctrl, err := ecs.NewController(c.ServiceName, c.ECS, c.AWS)
		if err != nil {
			return nil, err
		}
		return ctrl, nil
	},
}

// Load builds the configured queue backend.
func (l SourceLoader) Load(conf config.Config) (queue.Source, error) {
	f, ok := l[conf.QueueBackend]
	if !ok {
		return nil, &config.ConfigurationError{Err: fmt.Errorf("unknown queue backend %q", conf.QueueBackend)}
	}
	return f(conf)
}

// Load builds the configured replica backend.
func (l ControllerLoader) Load(conf config.Config, log *logger.Logger) (replica.Controller, error) {
	f, ok := l[conf.ReplicaBackend]
	if !ok {
		return nil, &config.ConfigurationError{Err: fmt.Errorf("unknown replica backend %q", conf.ReplicaBackend)}
	}
	return f(conf, log)
}
