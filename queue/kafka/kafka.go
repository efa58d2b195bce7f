// Package kafka reports a consumer group's lag on a Kafka topic as a backlog.
package kafka

import (
	"context"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/queue"
)

// Name is the backend name used in configuration.
const Name = "kafka"

// offsetReader is the subset of sarama.Client used here.
type offsetReader interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, time int64) (int64, error)
	RefreshMetadata(topics ...string) error
}

// groupOffsetReader is the subset of sarama.ClusterAdmin used here.
type groupOffsetReader interface {
	ListConsumerGroupOffsets(group string, topicPartitions map[string][]int32) (*sarama.OffsetFetchResponse, error)
}

// Source reports the lag of a consumer group on a topic: for each partition,
// the newest offset minus the group's committed offset. Partitions the group
// never committed count from the oldest retained offset.
type Source struct {
	client  offsetReader
	admin   groupOffsetReader
	closers []func() error
	topic   string
	group   string
}

// NewSource connects to the brokers and returns a Source for the topic.
func NewSource(topic string, conf config.Kafka) (*Source, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "autoscaler"
	if conf.Version != "" {
		v, err := sarama.ParseKafkaVersion(conf.Version)
		if err != nil {
			return nil, fmt.Errorf("parsing kafka version: %w", err)
		}
		cfg.Version = v
	}

	client, err := sarama.NewClient(conf.Brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	admin, err := sarama.NewClusterAdminFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("creating kafka admin client: %w", err)
	}

	s := newSource(topic, conf.Group, client, admin)
	// Closing the admin also closes the client it was built from.
	s.closers = []func() error{admin.Close}
	return s, nil
}

func newSource(topic, group string, client offsetReader, admin groupOffsetReader) *Source {
	return &Source{
		client: client,
		admin:  admin,
		topic:  topic,
		group:  group,
	}
}

// Name returns the topic name.
func (s *Source) Name() string {
	return s.topic
}

// Backlog returns the consumer group's total lag on the topic.
func (s *Source) Backlog(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, queue.NewConnectivityError(s.topic, "read backlog", err)
	}
	lag, err := s.lag()
	if err != nil {
		return 0, queue.NewConnectivityError(s.topic, "read backlog", err)
	}
	return lag, nil
}

func (s *Source) lag() (int, error) {
	partitions, err := s.client.Partitions(s.topic)
	if err != nil {
		return 0, fmt.Errorf("listing partitions: %w", err)
	}

	committed, err := s.admin.ListConsumerGroupOffsets(s.group, map[string][]int32{s.topic: partitions})
	if err != nil {
		return 0, fmt.Errorf("fetching offsets of group %q: %w", s.group, err)
	}
	if committed.Err != sarama.ErrNoError {
		return 0, fmt.Errorf("fetching offsets of group %q: %w", s.group, committed.Err)
	}

	var total int64
	for _, p := range partitions {
		newest, err := s.client.GetOffset(s.topic, p, sarama.OffsetNewest)
		if err != nil {
			return 0, fmt.Errorf("partition %d: newest offset: %w", p, err)
		}

		offset := int64(-1)
		if block := committed.GetBlock(s.topic, p); block != nil {
			if block.Err != sarama.ErrNoError {
				return 0, fmt.Errorf("partition %d: committed offset: %w", p, block.Err)
			}
			offset = block.Offset
		}
		if offset < 0 {
			offset, err = s.client.GetOffset(s.topic, p, sarama.OffsetOldest)
			if err != nil {
				return 0, fmt.Errorf("partition %d: oldest offset: %w", p, err)
			}
		}

		if lag := newest - offset; lag > 0 {
			total += lag
		}
	}
	return int(total), nil
}

// Probe refreshes the topic's metadata, which fails if the brokers are
// unreachable or the topic does not exist.
func (s *Source) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return queue.NewConnectivityError(s.topic, "probe", err)
	}
	if err := s.client.RefreshMetadata(s.topic); err != nil {
		return queue.NewConnectivityError(s.topic, "probe", err)
	}
	return nil
}

// Close releases the broker connections.
func (s *Source) Close() error {
	for _, c := range s.closers {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}
