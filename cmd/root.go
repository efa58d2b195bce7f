// Package cmd contains the autoscaler CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/forseti-judge/autoscaler/cmd/plan"
	"github.com/forseti-judge/autoscaler/cmd/run"
	"github.com/forseti-judge/autoscaler/cmd/util"
	"github.com/forseti-judge/autoscaler/cmd/version"
)

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:           "autoscaler",
	Short:         "Scales a container service from the backlog of a message queue.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	RootCmd.SetGlobalNormalizationFunc(util.NormalizeFlags)
	RootCmd.AddCommand(completionCmd)
	RootCmd.AddCommand(genMarkdownCmd)
	RootCmd.AddCommand(plan.NewCommand())
	RootCmd.AddCommand(run.NewCommand())
	RootCmd.AddCommand(version.Cmd)
}
