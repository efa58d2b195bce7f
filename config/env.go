package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// environment lists the variables read by FromEnv. Pointer fields stay nil
// when the variable is unset, so unset variables never override a value.
type environment struct {
	QueueName      *string `envconfig:"QUEUE_NAME"`
	ServiceName    *string `envconfig:"SERVICE_NAME"`
	QueueBackend   *string `envconfig:"QUEUE_BACKEND"`
	ReplicaBackend *string `envconfig:"REPLICA_BACKEND"`
	DryRun         *bool   `envconfig:"DRY_RUN"`

	MessagesPerReplica *int    `envconfig:"MESSAGES_PER_REPLICA"`
	MinReplicas        *int    `envconfig:"MIN_REPLICAS"`
	MaxReplicas        *int    `envconfig:"MAX_REPLICAS"`
	Cooldown           *string `envconfig:"COOLDOWN"`
	Interval           *string `envconfig:"INTERVAL"`
	Port               *int    `envconfig:"PORT"`

	RabbitMQScheme   *string `envconfig:"RABBITMQ_SCHEME"`
	RabbitMQHost     *string `envconfig:"RABBITMQ_HOST"`
	RabbitMQPort     *int    `envconfig:"RABBITMQ_PORT"`
	RabbitMQVHost    *string `envconfig:"RABBITMQ_VHOST"`
	RabbitMQUser     *string `envconfig:"RABBITMQ_USER"`
	RabbitMQPassword *string `envconfig:"RABBITMQ_PASSWORD"`

	AWSRegion   *string `envconfig:"AWS_REGION"`
	AWSEndpoint *string `envconfig:"AWS_ENDPOINT"`
	AWSKey      *string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecret   *string `envconfig:"AWS_SECRET_ACCESS_KEY"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaGroup   *string  `envconfig:"KAFKA_GROUP"`

	KubernetesNamespace *string `envconfig:"KUBERNETES_NAMESPACE"`
	Kubeconfig          *string `envconfig:"KUBECONFIG"`

	ECSCluster *string `envconfig:"ECS_CLUSTER"`

	LogLevel  *string `envconfig:"LOG_LEVEL"`
	LogFormat *string `envconfig:"LOG_FORMAT"`
}

// FromEnv overrides conf with the environment variables that are set.
// COOLDOWN and INTERVAL are seconds, or Go duration strings.
func FromEnv(conf *Config) error {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return &ConfigurationError{Err: fmt.Errorf("reading environment: %w", err)}
	}

	setString(&conf.QueueName, env.QueueName)
	setString(&conf.ServiceName, env.ServiceName)
	setString(&conf.QueueBackend, env.QueueBackend)
	setString(&conf.ReplicaBackend, env.ReplicaBackend)
	if env.DryRun != nil {
		conf.DryRun = *env.DryRun
	}

	setInt(&conf.Scaling.MessagesPerReplica, env.MessagesPerReplica)
	setInt(&conf.Scaling.MinReplicas, env.MinReplicas)
	setInt(&conf.Scaling.MaxReplicas, env.MaxReplicas)
	if err := setDuration(&conf.Scaling.Cooldown, env.Cooldown); err != nil {
		return &ConfigurationError{Err: fmt.Errorf("COOLDOWN: %w", err)}
	}
	if err := setDuration(&conf.Scaling.Interval, env.Interval); err != nil {
		return &ConfigurationError{Err: fmt.Errorf("INTERVAL: %w", err)}
	}
	setInt(&conf.Server.Port, env.Port)

	setString(&conf.RabbitMQ.Scheme, env.RabbitMQScheme)
	setString(&conf.RabbitMQ.Host, env.RabbitMQHost)
	setInt(&conf.RabbitMQ.Port, env.RabbitMQPort)
	setString(&conf.RabbitMQ.VHost, env.RabbitMQVHost)
	setString(&conf.RabbitMQ.User, env.RabbitMQUser)
	setString(&conf.RabbitMQ.Password, env.RabbitMQPassword)

	setString(&conf.AWS.Region, env.AWSRegion)
	setString(&conf.AWS.Endpoint, env.AWSEndpoint)
	setString(&conf.AWS.Key, env.AWSKey)
	setString(&conf.AWS.Secret, env.AWSSecret)

	if len(env.KafkaBrokers) > 0 {
		conf.Kafka.Brokers = env.KafkaBrokers
	}
	setString(&conf.Kafka.Group, env.KafkaGroup)

	setString(&conf.Kubernetes.Namespace, env.KubernetesNamespace)
	setString(&conf.Kubernetes.ConfigFile, env.Kubeconfig)

	setString(&conf.ECS.Cluster, env.ECSCluster)

	setString(&conf.Logger.Level, env.LogLevel)
	setString(&conf.Logger.Formatter, env.LogFormat)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *Duration, v *string) error {
	if v == nil {
		return nil
	}
	return dst.Set(*v)
}
