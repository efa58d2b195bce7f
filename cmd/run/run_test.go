package run

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	cmdutil "github.com/forseti-judge/autoscaler/cmd/util"
	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/queue"
	qmocks "github.com/forseti-judge/autoscaler/queue/mocks"
	"github.com/forseti-judge/autoscaler/replica"
	rmocks "github.com/forseti-judge/autoscaler/replica/mocks"
)

func TestCommandMergesConfig(t *testing.T) {
	t.Setenv("QUEUE_NAME", "submission-queue")
	t.Setenv("SERVICE_NAME", "judge")
	t.Setenv("MAX_REPLICAS", "4")

	c, h := newCommandHooks()
	called := false
	h.Run = func(ctx context.Context, conf config.Config) error {
		called = true
		if conf.QueueName != "submission-queue" || conf.ServiceName != "judge" {
			t.Error("unexpected names", conf.QueueName, conf.ServiceName)
		}
		if conf.Scaling.MaxReplicas != 6 {
			t.Error("flags should override the environment", conf.Scaling.MaxReplicas)
		}
		if time.Duration(conf.Scaling.Interval) != 5*time.Second {
			t.Error("unexpected interval", conf.Scaling.Interval)
		}
		if !conf.DryRun {
			t.Error("expected dry run")
		}
		return nil
	}

	c.SetArgs([]string{"--Scaling.MaxReplicas", "6", "--scaling.interval", "5s", "--DryRun"})
	c.SetGlobalNormalizationFunc(cmdutil.NormalizeFlags)
	if err := c.Execute(); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("Run hook was not called")
	}
}

func TestCommandRejectsInvalidConfig(t *testing.T) {
	c, h := newCommandHooks()
	h.Run = func(ctx context.Context, conf config.Config) error {
		t.Error("Run should not be called with an invalid config")
		return nil
	}

	c.SetArgs([]string{"--Scaling.MinReplicas", "5", "--Scaling.MaxReplicas", "2"})
	err := c.Execute()

	var cerr *config.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatal("expected a ConfigurationError, got", err)
	}
}

func TestRun(t *testing.T) {
	src := &qmocks.Source{}
	src.SetupName("submission-queue")
	src.On("Probe", mock.Anything).Return(nil)
	src.SetupBacklog(2)

	ctrl := &rmocks.Controller{}
	ctrl.SetupName("judge")
	ctrl.On("Probe", mock.Anything).Return(nil)
	ctrl.SetupReplicas(1)
	scaled := make(chan struct{}, 1)
	ctrl.On("SetReplicas", mock.Anything, 2).
		Run(func(mock.Arguments) { scaled <- struct{}{} }).
		Return(nil).Once()

	Sources["test"] = func(config.Config) (queue.Source, error) { return src, nil }
	Controllers["test"] = func(config.Config, *logger.Logger) (replica.Controller, error) { return ctrl, nil }
	defer func() {
		delete(Sources, "test")
		delete(Controllers, "test")
	}()

	conf := config.DefaultConfig()
	conf.QueueName = "submission-queue"
	conf.ServiceName = "judge"
	conf.QueueBackend = "test"
	conf.ReplicaBackend = "test"
	conf.Server.HostName = "127.0.0.1"
	conf.Server.Port = 0
	conf.StartupTimeout = config.Duration(time.Second)
	conf.Logger.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- Run(ctx, conf)
	}()

	select {
	case <-scaled:
	case <-time.After(5 * time.Second):
		t.Fatal("the first tick did not scale")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Error("unexpected error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	ctrl.AssertNumberOfCalls(t, "SetReplicas", 1)
}

func TestLoadUnknownBackend(t *testing.T) {
	conf := config.DefaultConfig()
	conf.QueueBackend = "redis"
	conf.ReplicaBackend = "nomad"

	var cerr *config.ConfigurationError
	if _, err := Sources.Load(conf); !errors.As(err, &cerr) {
		t.Error("expected a ConfigurationError, got", err)
	}
	if _, err := Controllers.Load(conf, logger.NewLogger("test", logger.DebugConfig())); !errors.As(err, &cerr) {
		t.Error("expected a ConfigurationError, got", err)
	}
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

func TestWaitForBackends(t *testing.T) {
	log := logger.NewLogger("test", logger.DebugConfig())
	log.Discard()

	calls := 0
	ready := probeFunc(func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	waitForBackends(context.Background(), 10*time.Second, log, ready)
	if calls != 2 {
		t.Error("expected the probe to be retried until it succeeds, got", calls)
	}

	down := probeFunc(func(context.Context) error { return errors.New("connection refused") })
	start := time.Now()
	waitForBackends(context.Background(), 100*time.Millisecond, log, down)
	if d := time.Since(start); d > 5*time.Second {
		t.Error("waitForBackends did not give up in time", d)
	}
}
