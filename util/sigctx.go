package util

import (
	"context"
	"os"
	"os/signal"
)

// SignalContext returns a context which is canceled when any of the given
// signals is received. onSignal, if non-nil, is called with the signal.
// After the first signal the handler is removed, so a second one gets the
// default behavior and terminates the process.
func SignalContext(ctx context.Context, onSignal func(os.Signal), sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sch := make(chan os.Signal, 1)
	sub, cancel := context.WithCancel(ctx)
	signal.Notify(sch, sigs...)

	go func() {
		defer signal.Stop(sch)
		select {
		case <-sub.Done():
		case sig := <-sch:
			if onSignal != nil {
				onSignal(sig)
			}
			cancel()
		}
	}()

	return sub, cancel
}
