package plan

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/queue"
	qmocks "github.com/forseti-judge/autoscaler/queue/mocks"
	rmocks "github.com/forseti-judge/autoscaler/replica/mocks"
)

func testLogger() *logger.Logger {
	log := logger.NewLogger("test", logger.DebugConfig())
	log.Discard()
	return log
}

func TestPlanScaleUp(t *testing.T) {
	src := &qmocks.Source{}
	src.SetupName("submission-queue")
	src.SetupBacklog(5)
	ctrl := &rmocks.Controller{}
	ctrl.SetupName("judge")
	ctrl.SetupReplicas(1)

	var out bytes.Buffer
	err := Plan(context.Background(), config.DefaultConfig(), src, ctrl, testLogger(), &out)
	if err != nil {
		t.Fatal("unexpected error", err)
	}

	for _, want := range []string{
		"submission-queue (rabbitmq)",
		"judge (swarm)",
		"Backlog:",
		"scale up to 3",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
	ctrl.AssertNotCalled(t, "SetReplicas", mock.Anything, mock.Anything)
}

func TestPlanReportsDecision(t *testing.T) {
	src := &qmocks.Source{}
	src.SetupName("submission-queue")
	src.SetupBacklog(7)
	ctrl := &rmocks.Controller{}
	ctrl.SetupName("judge")
	ctrl.SetupReplicas(2)

	conf := config.DefaultConfig()
	conf.Scaling.MaxReplicas = 10
	conf.Scaling.MessagesPerReplica = 2

	var out bytes.Buffer
	if err := Plan(context.Background(), conf, src, ctrl, testLogger(), &out); err != nil {
		t.Fatal("unexpected error", err)
	}

	for _, want := range []*regexp.Regexp{
		regexp.MustCompile(`Backlog:\s+7\n`),
		regexp.MustCompile(`Current replicas:\s+2\n`),
		regexp.MustCompile(`Desired replicas:\s+4\n`),
		regexp.MustCompile(`Action:\s+scale up to 4\n`),
	} {
		if !want.MatchString(out.String()) {
			t.Errorf("expected output to match %q:\n%s", want, out.String())
		}
	}
}

func TestPlanNoChange(t *testing.T) {
	src := &qmocks.Source{}
	src.SetupName("submission-queue")
	src.SetupBacklog(0)
	ctrl := &rmocks.Controller{}
	ctrl.SetupName("judge")
	ctrl.SetupReplicas(1)

	var out bytes.Buffer
	if err := Plan(context.Background(), config.DefaultConfig(), src, ctrl, testLogger(), &out); err != nil {
		t.Fatal("unexpected error", err)
	}
	if !strings.Contains(out.String(), "none") {
		t.Error("expected no action, got", out.String())
	}
}

func TestPlanSourceError(t *testing.T) {
	src := &qmocks.Source{}
	src.SetupName("submission-queue")
	src.On("Backlog", mock.Anything).Return(0, errors.New("connection refused"))
	ctrl := &rmocks.Controller{}
	ctrl.SetupName("judge")

	var out bytes.Buffer
	err := Plan(context.Background(), config.DefaultConfig(), src, ctrl, testLogger(), &out)

	var cerr *queue.ConnectivityError
	if !errors.As(err, &cerr) {
		t.Fatal("expected a ConnectivityError, got", err)
	}
	if out.Len() != 0 {
		t.Error("expected no output on error", out.String())
	}
}
