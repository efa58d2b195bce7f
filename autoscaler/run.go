package autoscaler

import (
	"context"
)

// Run fires a tick immediately and then every Interval until ctx is canceled.
// Each tick runs on its own goroutine without waiting for earlier ticks, so
// slow ticks may overlap.
//
// After ctx is canceled no new ticks are started. Ticks already running are
// not canceled; Run returns once they have finished.
func (a *Autoscaler) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.conf.Interval)
	defer ticker.Stop()

	a.log.Info("Autoscaler started",
		"interval", a.conf.Interval,
		"cooldown", a.conf.Cooldown,
		"minReplicas", a.conf.MinReplicas,
		"maxReplicas", a.conf.MaxReplicas,
		"messagesPerReplica", a.conf.MessagesPerReplica,
		"dryRun", a.dryRun,
	)

	if ctx.Err() == nil {
		a.dispatch(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return a.drain()
		case <-ticker.C():
			// select picks at random when both channels are ready.
			if ctx.Err() != nil {
				return a.drain()
			}
			a.dispatch(ctx)
		}
	}
}

func (a *Autoscaler) drain() error {
	a.log.Info("Shutting down, waiting for in-flight ticks")
	a.inflight.Wait()
	a.log.Info("Autoscaler stopped")
	return nil
}

// dispatch starts one tick on a new goroutine. The tick's context is
// detached from ctx's cancellation so shutdown never interrupts a scale
// write that is already under way.
func (a *Autoscaler) dispatch(ctx context.Context) {
	tickCtx := context.WithoutCancel(ctx)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				a.metrics.Failure(a.controller.Name())
				a.log.Error("Recovered from panic in scaling tick", "panic", r)
			}
		}()
		a.Tick(tickCtx)
	}()
}
