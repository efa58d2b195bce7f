// Package config contains the autoscaler's configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/scaling"
)

// Backend names.
const (
	RabbitMQBackend   = "rabbitmq"
	SQSBackend        = "sqs"
	KafkaBackend      = "kafka"
	SwarmBackend      = "swarm"
	KubernetesBackend = "kubernetes"
	ECSBackend        = "ecs"
)

// Config describes the configuration of the autoscaler.
type Config struct {
	// Queue whose backlog drives scaling.
	QueueName string
	// Service whose replica count is controlled.
	ServiceName string
	// QueueBackend is one of "rabbitmq", "sqs" or "kafka".
	QueueBackend string
	// ReplicaBackend is one of "swarm", "kubernetes" or "ecs".
	ReplicaBackend string
	// DryRun computes and exports decisions without writing replica counts.
	DryRun bool

	Scaling Scaling
	Server  Server
	// StartupTimeout bounds how long "run" waits for the backends to become
	// reachable before starting the loop anyway.
	StartupTimeout Duration

	RabbitMQ   RabbitMQ
	AWS        AWS
	Kafka      Kafka
	Kubernetes Kubernetes
	ECS        ECS
	Logger     logger.Config
}

// Scaling describes the scaling policy.
type Scaling struct {
	MessagesPerReplica int
	MinReplicas        int
	MaxReplicas        int
	Cooldown           Duration
	Interval           Duration
}

// Policy converts the configuration into a scaling.Config.
func (s Scaling) Policy() scaling.Config {
	return scaling.Config{
		MessagesPerReplica: s.MessagesPerReplica,
		MinReplicas:        s.MinReplicas,
		MaxReplicas:        s.MaxReplicas,
		Cooldown:           time.Duration(s.Cooldown),
		Interval:           time.Duration(s.Interval),
	}
}

// Server describes the HTTP server exposing /metrics and /health.
type Server struct {
	HostName string
	Port     int
	// HealthTimeout bounds the backend probes made by /health.
	HealthTimeout Duration
}

// HTTPAddress returns the server's listen address.
func (s Server) HTTPAddress() string {
	return net.JoinHostPort(s.HostName, strconv.Itoa(s.Port))
}

// RabbitMQ describes the RabbitMQ management API connection.
type RabbitMQ struct {
	Scheme   string
	Host     string
	Port     int
	VHost    string
	User     string
	Password string
	Timeout  Duration
}

// ManagementURL returns the base URL of the management API.
func (r RabbitMQ) ManagementURL() string {
	u := url.URL{
		Scheme: r.Scheme,
		Host:   net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
	}
	return u.String()
}

// AWS describes the connection shared by the SQS and ECS backends.
type AWS struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for localstack.
	Endpoint   string
	Key        string
	Secret     string
	MaxRetries int
}

// Kafka describes the consumer group whose lag is the backlog.
type Kafka struct {
	Brokers []string
	Group   string
	Version string
}

// Kubernetes describes the Deployment backend.
type Kubernetes struct {
	Namespace string
	// ConfigFile is a kubeconfig path. When empty, $KUBECONFIG and then the
	// in-cluster config are used.
	ConfigFile string
}

// ECS describes the ECS service backend.
type ECS struct {
	Cluster string
}

// DefaultConfig returns configuration with simple defaults.
func DefaultConfig() Config {
	return Config{
		QueueBackend:   RabbitMQBackend,
		ReplicaBackend: SwarmBackend,
		Scaling: Scaling{
			MessagesPerReplica: 1,
			MinReplicas:        1,
			MaxReplicas:        3,
			Cooldown:           Duration(60 * time.Second),
			Interval:           Duration(10 * time.Second),
		},
		Server: Server{
			Port:          7000,
			HealthTimeout: Duration(5 * time.Second),
		},
		StartupTimeout: Duration(time.Minute),
		RabbitMQ: RabbitMQ{
			Scheme:   "http",
			Host:     "localhost",
			Port:     15672,
			VHost:    "/",
			User:     "guest",
			Password: "guest",
			Timeout:  Duration(5 * time.Second),
		},
		AWS: AWS{
			MaxRetries: 3,
		},
		Kafka: Kafka{
			Version: "2.1.0",
		},
		Kubernetes: Kubernetes{
			Namespace: "default",
		},
		ECS: ECS{
			Cluster: "default",
		},
		Logger: logger.DefaultConfig(),
	}
}

// ConfigurationError reports an invalid configuration. It is fatal at startup.
type ConfigurationError = scaling.ConfigurationError

// Validate checks the configuration, reporting all problems together as a
// *ConfigurationError.
func (c Config) Validate() error {
	var errs *multierror.Error
	if err := c.Scaling.Policy().Validate(); err != nil {
		var cerr *ConfigurationError
		if errors.As(err, &cerr) {
			err = cerr.Err
		}
		errs = multierror.Append(errs, err)
	}
	if c.QueueName == "" {
		errs = multierror.Append(errs, errors.New("queue name is required"))
	}
	if c.ServiceName == "" {
		errs = multierror.Append(errs, errors.New("service name is required"))
	}

	switch c.QueueBackend {
	case RabbitMQBackend, SQSBackend:
	case KafkaBackend:
		if len(c.Kafka.Brokers) == 0 {
			errs = multierror.Append(errs, errors.New("kafka backend requires at least one broker"))
		}
		if c.Kafka.Group == "" {
			errs = multierror.Append(errs, errors.New("kafka backend requires a consumer group"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown queue backend %q", c.QueueBackend))
	}

	switch c.ReplicaBackend {
	case SwarmBackend, KubernetesBackend, ECSBackend:
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown replica backend %q", c.ReplicaBackend))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return &ConfigurationError{Err: err}
	}
	return nil
}
