// Package metrics exposes the autoscaler's Prometheus gauges and counters.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Scaling directions used as the "direction" label of scaling_count.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Recorder holds the autoscaler's metrics, keyed by service name.
// It is safe for concurrent use.
type Recorder struct {
	currentReplicas *prometheus.GaugeVec
	desiredReplicas *prometheus.GaugeVec
	backlog         *prometheus.GaugeVec
	scalingCount    *prometheus.CounterVec
	failCount       *prometheus.CounterVec
	tickDuration    *prometheus.HistogramVec
}

// NewRecorder creates the autoscaler metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		currentReplicas: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "current_replicas",
				Help: "Replica count reported by the orchestrator on the last tick.",
			},
			[]string{"service_name"},
		),
		desiredReplicas: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "desired_replicas",
				Help: "Replica count computed from the queue backlog on the last tick.",
			},
			[]string{"service_name"},
		),
		backlog: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "queue_backlog",
				Help: "Pending and unacknowledged messages observed on the last tick.",
			},
			[]string{"service_name", "queue_name"},
		),
		scalingCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scaling_count",
				Help: "Number of successful scaling actions, by direction.",
			},
			[]string{"service_name", "direction"},
		),
		failCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fail_count",
				Help: "Number of failed queue reads, replica reads and scale writes.",
			},
			[]string{"service_name"},
		),
		tickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tick_duration_seconds",
				Help:    "Time spent in one sample-decide-act tick.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service_name"},
		),
	}

	for _, c := range []prometheus.Collector{
		r.currentReplicas,
		r.desiredReplicas,
		r.backlog,
		r.scalingCount,
		r.failCount,
		r.tickDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Init creates the counter series for a service at zero so they are
// exported before the first event.
func (r *Recorder) Init(service string) {
	r.scalingCount.WithLabelValues(service, DirectionUp)
	r.scalingCount.WithLabelValues(service, DirectionDown)
	r.failCount.WithLabelValues(service)
}

// SetReplicas records the current and desired replica counts.
func (r *Recorder) SetReplicas(service string, current, desired int) {
	r.currentReplicas.WithLabelValues(service).Set(float64(current))
	r.desiredReplicas.WithLabelValues(service).Set(float64(desired))
}

// SetBacklog records the observed queue backlog.
func (r *Recorder) SetBacklog(service, queue string, n int) {
	r.backlog.WithLabelValues(service, queue).Set(float64(n))
}

// ScaleAction counts a successful scaling action in the given direction.
func (r *Recorder) ScaleAction(service, direction string) {
	r.scalingCount.WithLabelValues(service, direction).Inc()
}

// Failure counts a failed backend call.
func (r *Recorder) Failure(service string) {
	r.failCount.WithLabelValues(service).Inc()
}

// ObserveTick records how long a tick took.
func (r *Recorder) ObserveTick(service string, d time.Duration) {
	r.tickDuration.WithLabelValues(service).Observe(d.Seconds())
}
