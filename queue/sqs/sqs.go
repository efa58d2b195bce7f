// Package sqs reads queue backlogs from Amazon SQS.
package sqs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/queue"
	awsutil "github.com/forseti-judge/autoscaler/util/aws"
)

// Name is the backend name used in configuration.
const Name = "sqs"

var backlogAttributes = []*string{
	aws.String(sqs.QueueAttributeNameApproximateNumberOfMessages),
	aws.String(sqs.QueueAttributeNameApproximateNumberOfMessagesNotVisible),
}

// Source reports an SQS queue's visible plus in-flight message count.
type Source struct {
	client sqsiface.SQSAPI
	queue  string

	mu  sync.Mutex
	url string
}

// NewSource returns a Source for the named queue using the given AWS config.
func NewSource(queueName string, conf config.AWS) (*Source, error) {
	sess, err := awsutil.NewAWSSession(conf)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return NewSourceWithClient(queueName, sqs.New(sess)), nil
}

// NewSourceWithClient returns a Source using an existing SQS client.
func NewSourceWithClient(queueName string, client sqsiface.SQSAPI) *Source {
	return &Source{client: client, queue: queueName}
}

// Name returns the queue name.
func (s *Source) Name() string {
	return s.queue
}

// Backlog returns ApproximateNumberOfMessages + ApproximateNumberOfMessagesNotVisible.
func (s *Source) Backlog(ctx context.Context) (int, error) {
	url, err := s.queueURL(ctx)
	if err != nil {
		return 0, queue.NewConnectivityError(s.queue, "resolve queue url", err)
	}

	out, err := s.client.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: backlogAttributes,
	})
	if err != nil {
		// The queue may have been deleted and recreated under a new URL.
		if isQueueMissing(err) {
			s.forgetURL()
		}
		return 0, queue.NewConnectivityError(s.queue, "read backlog", err)
	}

	total := 0
	for _, attr := range backlogAttributes {
		raw, ok := out.Attributes[*attr]
		if !ok || raw == nil {
			continue
		}
		n, err := strconv.Atoi(*raw)
		if err != nil {
			return 0, queue.NewConnectivityError(s.queue, "read backlog", fmt.Errorf("parsing %s: %w", *attr, err))
		}
		total += n
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}

// Probe resolves the queue URL, which checks both reachability and credentials.
func (s *Source) Probe(ctx context.Context) error {
	if _, err := s.queueURL(ctx); err != nil {
		return queue.NewConnectivityError(s.queue, "probe", err)
	}
	return nil
}

// queueURL resolves the queue URL once and caches it.
func (s *Source) queueURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url != "" {
		return s.url, nil
	}

	out, err := s.client.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(s.queue),
	})
	if err != nil {
		return "", err
	}
	s.url = aws.StringValue(out.QueueUrl)
	return s.url, nil
}

func (s *Source) forgetURL() {
	s.mu.Lock()
	s.url = ""
	s.mu.Unlock()
}

func isQueueMissing(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == sqs.ErrCodeQueueDoesNotExist
}
