package util

import (
	"github.com/spf13/pflag"

	"github.com/forseti-judge/autoscaler/config"
)

// ConfigFlags returns a new flag set for configuring the autoscaler.
// Flags left unset keep the zero value so they don't override the
// config file or the environment.
func ConfigFlags(flagConf *config.Config, configFile *string) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVarP(configFile, "config", "c", *configFile, "Config File")

	f.AddFlagSet(targetFlags(flagConf))
	f.AddFlagSet(scalingFlags(flagConf))
	f.AddFlagSet(backendFlags(flagConf))
	f.AddFlagSet(loggerFlags(flagConf))

	return f
}

func targetFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVar(&flagConf.QueueName, "QueueName", flagConf.QueueName, "Name of the queue whose backlog drives scaling")
	f.StringVar(&flagConf.ServiceName, "ServiceName", flagConf.ServiceName, "Name of the service to scale")
	f.StringVar(&flagConf.QueueBackend, "QueueBackend", flagConf.QueueBackend, "Queue backend: rabbitmq, sqs or kafka")
	f.StringVar(&flagConf.ReplicaBackend, "ReplicaBackend", flagConf.ReplicaBackend, "Replica backend: swarm, kubernetes or ecs")
	f.BoolVar(&flagConf.DryRun, "DryRun", flagConf.DryRun, "Compute and export decisions without scaling")
	f.IntVar(&flagConf.Server.Port, "Server.Port", flagConf.Server.Port, "HTTP port for /metrics and /health")

	return f
}

func scalingFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.IntVar(&flagConf.Scaling.MessagesPerReplica, "Scaling.MessagesPerReplica", flagConf.Scaling.MessagesPerReplica, "Backlog one replica is expected to absorb")
	f.IntVar(&flagConf.Scaling.MinReplicas, "Scaling.MinReplicas", flagConf.Scaling.MinReplicas, "Minimum replica count")
	f.IntVar(&flagConf.Scaling.MaxReplicas, "Scaling.MaxReplicas", flagConf.Scaling.MaxReplicas, "Maximum replica count")
	f.Var(&flagConf.Scaling.Cooldown, "Scaling.Cooldown", "Minimum time between two scaling actions")
	f.Var(&flagConf.Scaling.Interval, "Scaling.Interval", "Time between two backlog samples")

	return f
}

func backendFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVar(&flagConf.RabbitMQ.Host, "RabbitMQ.Host", flagConf.RabbitMQ.Host, "RabbitMQ management API host")
	f.IntVar(&flagConf.RabbitMQ.Port, "RabbitMQ.Port", flagConf.RabbitMQ.Port, "RabbitMQ management API port")
	f.StringVar(&flagConf.RabbitMQ.VHost, "RabbitMQ.VHost", flagConf.RabbitMQ.VHost, "RabbitMQ virtual host")
	f.StringVar(&flagConf.AWS.Region, "AWS.Region", flagConf.AWS.Region, "AWS region")
	f.StringVar(&flagConf.AWS.Endpoint, "AWS.Endpoint", flagConf.AWS.Endpoint, "AWS endpoint override")
	f.StringSliceVar(&flagConf.Kafka.Brokers, "Kafka.Brokers", flagConf.Kafka.Brokers, "Kafka broker addresses")
	f.StringVar(&flagConf.Kafka.Group, "Kafka.Group", flagConf.Kafka.Group, "Kafka consumer group")
	f.StringVar(&flagConf.Kubernetes.Namespace, "Kubernetes.Namespace", flagConf.Kubernetes.Namespace, "Kubernetes namespace of the Deployment")
	f.StringVar(&flagConf.Kubernetes.ConfigFile, "Kubernetes.ConfigFile", flagConf.Kubernetes.ConfigFile, "Path to a kubeconfig file")
	f.StringVar(&flagConf.ECS.Cluster, "ECS.Cluster", flagConf.ECS.Cluster, "ECS cluster of the service")

	return f
}

func loggerFlags(flagConf *config.Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.StringVar(&flagConf.Logger.Level, "Logger.Level", flagConf.Logger.Level, "Level of logging")
	f.StringVar(&flagConf.Logger.OutputFile, "Logger.OutputFile", flagConf.Logger.OutputFile, "File path to write logs to")
	f.StringVar(&flagConf.Logger.Formatter, "Logger.Formatter", flagConf.Logger.Formatter, "Logs formatter. One of ['text', 'json']")

	return f
}
