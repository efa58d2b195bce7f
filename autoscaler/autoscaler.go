// Package autoscaler runs the sample-decide-act loop which scales one
// service from one queue's backlog.
package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"k8s.io/utils/clock"

	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/metrics"
	"github.com/forseti-judge/autoscaler/queue"
	"github.com/forseti-judge/autoscaler/replica"
	"github.com/forseti-judge/autoscaler/scaling"
)

// Autoscaler scales a replica.Controller's service from a queue.Source's backlog.
//
// Tick may be called concurrently. The cooldown check and the scale write
// are serialized so that at most one SetReplicas call is in flight.
type Autoscaler struct {
	conf       scaling.Config
	source     queue.Source
	controller replica.Controller
	metrics    *metrics.Recorder
	clock      clock.WithTicker
	log        *logger.Logger
	dryRun     bool

	state    state
	inflight sync.WaitGroup
}

// Option configures an Autoscaler.
type Option func(*Autoscaler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(a *Autoscaler) {
		a.clock = c
	}
}

// WithLogger sets the logger used for tick logs.
func WithLogger(l *logger.Logger) Option {
	return func(a *Autoscaler) {
		a.log = l
	}
}

// WithDryRun disables scale writes. Decisions are still computed, logged
// and exported.
func WithDryRun(dryRun bool) Option {
	return func(a *Autoscaler) {
		a.dryRun = dryRun
	}
}

// New returns an Autoscaler. It returns a *scaling.ConfigurationError if the
// policy bounds are invalid.
func New(conf scaling.Config, src queue.Source, ctrl replica.Controller, rec *metrics.Recorder, opts ...Option) (*Autoscaler, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if src == nil || ctrl == nil || rec == nil {
		return nil, errors.New("autoscaler: source, controller and metrics are required")
	}

	a := &Autoscaler{
		conf:       conf,
		source:     src,
		controller: ctrl,
		metrics:    rec,
		clock:      clock.RealClock{},
		log:        logger.NewSubLogger("autoscaler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithFields("service", ctrl.Name(), "queue", src.Name())
	rec.Init(ctrl.Name())
	return a, nil
}

// LastScale returns the time of the last successful scale, if any.
func (a *Autoscaler) LastScale() (time.Time, bool) {
	return a.state.last()
}

// Tick performs one scaling attempt. Errors never escape a tick: they are
// logged, counted in fail_count and reported in the returned Result.
func (a *Autoscaler) Tick(ctx context.Context) Result {
	start := a.clock.Now()
	service := a.controller.Name()
	res := Result{ID: xid.New()}
	log := a.log.WithFields("tick", res.ID.String())
	defer func() {
		a.metrics.ObserveTick(service, a.clock.Since(start))
	}()

	backlog, err := a.source.Backlog(ctx)
	if err != nil {
		var cerr *queue.ConnectivityError
		if !errors.As(err, &cerr) {
			err = queue.NewConnectivityError(a.source.Name(), "read backlog", err)
		}
		return a.fail(log, res, "read backlog", err)
	}

	current, err := a.controller.Replicas(ctx)
	if err != nil {
		var oerr *replica.OrchestrationError
		if !errors.As(err, &oerr) {
			err = replica.NewOrchestrationError(service, "read replicas", err)
		}
		return a.fail(log, res, "read replicas", err)
	}

	desired := scaling.DesiredReplicas(backlog, a.conf)
	now := a.clock.Now()
	res.Decision = Decision{
		ObservedMessages: backlog,
		CurrentReplicas:  current,
		DesiredReplicas:  desired,
		CoolingDown:      a.state.coolingDown(now, a.conf.Cooldown),
	}

	// Published on every tick, scaling or not.
	a.metrics.SetBacklog(service, a.source.Name(), backlog)
	a.metrics.SetReplicas(service, current, desired)

	log = log.WithFields("backlog", backlog, "current", current, "desired", desired)

	if desired == current {
		res.Outcome = Unchanged
		log.Debug("Replica count is already at the desired value")
		return res
	}

	if a.dryRun {
		res.Outcome = DryRun
		log.Info("Dry run: skipping scale")
		return res
	}

	outcome, ok := a.state.acquire(now, a.conf.Cooldown)
	if !ok {
		res.Outcome = outcome
		if outcome == CoolingDown {
			last, _ := a.state.last()
			log.Info("Skipping scale: cooldown active", "lastScale", last, "cooldown", a.conf.Cooldown)
		} else {
			log.Info("Skipping scale: another tick is scaling the service")
		}
		return res
	}

	if err := a.commit(ctx, now, desired); err != nil {
		var oerr *replica.OrchestrationError
		if !errors.As(err, &oerr) {
			err = replica.NewOrchestrationError(service, "set replicas", err)
		}
		return a.fail(log, res, "set replicas", err)
	}

	direction := scaling.Direction(current, desired)
	a.metrics.ScaleAction(service, direction)
	res.Outcome = Scaled
	log.Info("Scaled service", "direction", direction)
	return res
}

// commit calls SetReplicas while holding the scale claim, and always
// releases it. Only a successful write starts a cooldown, and the cooldown
// is measured from now, the time the tick made its decision.
func (a *Autoscaler) commit(ctx context.Context, now time.Time, desired int) (err error) {
	var at time.Time
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while setting replicas: %v", r)
			at = time.Time{}
		}
		a.state.release(at)
	}()

	if err := a.controller.SetReplicas(ctx, desired); err != nil {
		return err
	}
	at = now
	return nil
}

func (a *Autoscaler) fail(log *logger.Logger, res Result, op string, err error) Result {
	res.Outcome = Failed
	res.Err = err
	a.metrics.Failure(a.controller.Name())
	log.Error("Scaling tick failed", "op", op, "error", err)
	return res
}
