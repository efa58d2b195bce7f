package main

import (
	"os"

	"github.com/forseti-judge/autoscaler/cmd"
	"github.com/forseti-judge/autoscaler/logger"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		logger.PrintSimpleError(err)
		os.Exit(1)
	}
}
