// Package version reports build details set at link time, e.g.
//
//	go build -ldflags "-X github.com/forseti-judge/autoscaler/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime"
)

// Build and version details
var (
	GitCommit = ""
	GitBranch = ""
	BuildDate = ""
	Version   = "unknown"
)

var tpl = `git commit: %s
git branch: %s
build date: %s
go version: %s
version: %s`

// String formats a string with version details.
func String() string {
	return fmt.Sprintf(tpl, GitCommit, GitBranch, BuildDate, runtime.Version(), Version)
}

// LogFields returns build details as key/value pairs for a structured logger.
func LogFields() []interface{} {
	return []interface{}{
		"GitCommit", GitCommit,
		"GitBranch", GitBranch,
		"BuildDate", BuildDate,
		"Version", Version,
	}
}
