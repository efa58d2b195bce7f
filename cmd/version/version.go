package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forseti-judge/autoscaler/version"
)

// Cmd represents the "version" command
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Prints build and version details.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
