package autoscaler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/metrics"
	queue_mocks "github.com/forseti-judge/autoscaler/queue/mocks"
	replica_mocks "github.com/forseti-judge/autoscaler/replica/mocks"
	"github.com/forseti-judge/autoscaler/scaling"
)

const (
	testService = "judge"
	testQueue   = "submission-queue"
)

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testConfig() scaling.Config {
	return scaling.Config{
		MessagesPerReplica: 1,
		MinReplicas:        1,
		MaxReplicas:        3,
		Cooldown:           time.Minute,
		Interval:           10 * time.Second,
	}
}

// testAutoscaler wraps Autoscaler with its mocked collaborators.
type testAutoscaler struct {
	*Autoscaler
	Source     *queue_mocks.Source
	Controller *replica_mocks.Controller
	Clock      *clocktesting.FakeClock
	Registry   *prometheus.Registry
}

func newTestAutoscaler(t *testing.T, conf scaling.Config, opts ...Option) testAutoscaler {
	src := new(queue_mocks.Source)
	src.SetupName(testQueue)
	ctrl := new(replica_mocks.Controller)
	ctrl.SetupName(testService)

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		t.Fatal(err)
	}

	fc := clocktesting.NewFakeClock(testStart)
	opts = append([]Option{
		WithClock(fc),
		WithLogger(logger.NewLogger("test-autoscaler", logger.DebugConfig())),
	}, opts...)

	a, err := New(conf, src, ctrl, rec, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return testAutoscaler{
		Autoscaler: a,
		Source:     src,
		Controller: ctrl,
		Clock:      fc,
		Registry:   reg,
	}
}

// metricValue returns the value of the gauge or counter series with the
// given name and labels, and whether that series exists.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) (float64, bool) {
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue(), true
			}
			return m.GetCounter().GetValue(), true
		}
	}
	return 0, false
}

func failCount(t *testing.T, reg *prometheus.Registry) float64 {
	v, _ := metricValue(t, reg, "fail_count", map[string]string{"service_name": testService})
	return v
}

func scalingCount(t *testing.T, reg *prometheus.Registry, direction string) float64 {
	v, _ := metricValue(t, reg, "scaling_count", map[string]string{
		"service_name": testService,
		"direction":    direction,
	})
	return v
}

// timeLimit fails the test if it doesn't complete in the given time.
func timeLimit(t *testing.T, d time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		select {
		case <-time.After(d):
			t.Error("time limit expired")
		case <-stop:
		}
	}()
	return func() {
		close(stop)
	}
}
