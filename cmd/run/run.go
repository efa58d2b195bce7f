// Package run contains the "autoscaler run" command.
package run

import (
	"context"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/forseti-judge/autoscaler/autoscaler"
	cmdutil "github.com/forseti-judge/autoscaler/cmd/util"
	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/metrics"
	"github.com/forseti-judge/autoscaler/server"
	"github.com/forseti-judge/autoscaler/util"
	"github.com/forseti-judge/autoscaler/version"
)

// NewCommand returns the "run" command.
func NewCommand() *cobra.Command {
	cmd, _ := newCommandHooks()
	return cmd
}

type hooks struct {
	Run func(ctx context.Context, conf config.Config) error
}

func newCommandHooks() (*cobra.Command, *hooks) {
	hooks := &hooks{
		Run: Run,
	}

	var (
		configFile string
		flagConf   config.Config
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scales a service from its queue's backlog until interrupted.",
		Long: `Scales a service from its queue's backlog until SIGINT or SIGTERM.

Configuration is read from defaults, then the config file, then environment
variables (QUEUE_NAME, SERVICE_NAME, MIN_REPLICAS, ...), then flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := cmdutil.MergeConfig(configFile, flagConf, cmd.Flags())
			if err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				return err
			}

			ctx, cancel := util.SignalContext(context.Background(), func(sig os.Signal) {
				logger.Info("Caught signal, draining in-flight ticks", "signal", sig.String())
			}, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return hooks.Run(ctx, conf)
		},
	}

	f := cmd.Flags()
	f.AddFlagSet(cmdutil.ConfigFlags(&flagConf, &configFile))

	return cmd, hooks
}

// Run builds the configured backends and runs the HTTP server and the
// autoscale loop until ctx is canceled. It returns once in-flight ticks
// have finished.
func Run(ctx context.Context, conf config.Config) error {
	logger.Configure(conf.Logger)
	log := logger.NewSubLogger("autoscaler")
	log.Info("Starting autoscaler", version.LogFields()...)

	src, err := Sources.Load(conf)
	if err != nil {
		return err
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	ctrl, err := Controllers.Load(conf, log)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	a, err := autoscaler.New(conf.Scaling.Policy(), src, ctrl, rec,
		autoscaler.WithLogger(log),
		autoscaler.WithDryRun(conf.DryRun),
	)
	if err != nil {
		return err
	}

	srv := &server.Server{
		Address:       conf.Server.HTTPAddress(),
		Gatherer:      reg,
		Source:        src,
		Controller:    ctrl,
		HealthTimeout: time.Duration(conf.Server.HealthTimeout),
		Log:           log.NewSubLogger("server"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		waitForBackends(gctx, time.Duration(conf.StartupTimeout), log, src, ctrl)
		return a.Run(gctx)
	})
	return g.Wait()
}

type prober interface {
	Probe(ctx context.Context) error
}

// waitForBackends retries the backends' probes for up to timeout. The loop
// starts regardless: a failing tick is logged and counted, not fatal.
func waitForBackends(ctx context.Context, timeout time.Duration, log *logger.Logger, probes ...prober) {
	if timeout <= 0 {
		return
	}
	r := util.NewRetrier()
	r.MaxElapsedTime = timeout
	r.Notify = func(err error, next time.Duration) {
		log.Warn("Backends not ready", "error", err, "retryIn", next)
	}

	err := r.Retry(ctx, func() error {
		for _, p := range probes {
			if err := p.Probe(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("Backends still unreachable, starting anyway", "error", err)
		return
	}
	log.Info("Backends ready")
}
