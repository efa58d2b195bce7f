// Package plan contains the "autoscaler plan" command, which evaluates the
// scaling policy once without changing anything.
package plan

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/forseti-judge/autoscaler/autoscaler"
	"github.com/forseti-judge/autoscaler/cmd/run"
	cmdutil "github.com/forseti-judge/autoscaler/cmd/util"
	"github.com/forseti-judge/autoscaler/config"
	"github.com/forseti-judge/autoscaler/logger"
	"github.com/forseti-judge/autoscaler/metrics"
	"github.com/forseti-judge/autoscaler/queue"
	"github.com/forseti-judge/autoscaler/replica"
	"github.com/forseti-judge/autoscaler/scaling"
)

const planTimeout = 30 * time.Second

// NewCommand returns the "plan" command.
func NewCommand() *cobra.Command {
	var (
		configFile string
		flagConf   config.Config
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Reads the backlog and replica count once and prints the scaling decision.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := cmdutil.MergeConfig(configFile, flagConf, cmd.Flags())
			if err != nil {
				return err
			}
			if err := conf.Validate(); err != nil {
				return err
			}
			logger.Configure(conf.Logger)
			log := logger.NewSubLogger("plan")

			src, err := run.Sources.Load(conf)
			if err != nil {
				return err
			}
			if c, ok := src.(io.Closer); ok {
				defer c.Close()
			}
			ctrl, err := run.Controllers.Load(conf, log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), planTimeout)
			defer cancel()
			return Plan(ctx, conf, src, ctrl, log, cmd.OutOrStdout())
		},
	}

	cmd.Flags().AddFlagSet(cmdutil.ConfigFlags(&flagConf, &configFile))
	return cmd
}

// Plan runs a single dry-run tick and writes the decision to w.
func Plan(ctx context.Context, conf config.Config, src queue.Source, ctrl replica.Controller, log *logger.Logger, w io.Writer) error {
	rec, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	a, err := autoscaler.New(conf.Scaling.Policy(), src, ctrl, rec,
		autoscaler.WithDryRun(true),
		autoscaler.WithLogger(log),
	)
	if err != nil {
		return err
	}

	res := a.Tick(ctx)
	if res.Err != nil {
		return res.Err
	}

	d := res.Decision
	action := "none"
	if d.DesiredReplicas != d.CurrentReplicas {
		action = fmt.Sprintf("scale %s to %d", scaling.Direction(d.CurrentReplicas, d.DesiredReplicas), d.DesiredReplicas)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Queue:\t%s (%s)\n", src.Name(), conf.QueueBackend)
	fmt.Fprintf(tw, "Backlog:\t%d\n", d.ObservedMessages)
	fmt.Fprintf(tw, "Service:\t%s (%s)\n", ctrl.Name(), conf.ReplicaBackend)
	fmt.Fprintf(tw, "Current replicas:\t%d\n", d.CurrentReplicas)
	fmt.Fprintf(tw, "Desired replicas:\t%d\n", d.DesiredReplicas)
	fmt.Fprintf(tw, "Action:\t%s\n", action)
	return tw.Flush()
}
