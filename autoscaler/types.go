package autoscaler

import (
	"github.com/rs/xid"
)

// Decision is what a single tick observed and computed.
type Decision struct {
	ObservedMessages int
	CurrentReplicas  int
	DesiredReplicas  int
	CoolingDown      bool
}

// Outcome describes how a tick ended.
type Outcome int

// Tick outcomes.
const (
	// Failed means a backend call failed; the failure was logged and counted.
	Failed Outcome = iota
	// Unchanged means the service already runs the desired replica count.
	Unchanged
	// CoolingDown means a scale was needed but the cooldown has not elapsed.
	CoolingDown
	// Busy means another tick was already scaling the service.
	Busy
	// Scaled means SetReplicas succeeded.
	Scaled
	// DryRun means a scale was needed but writes are disabled.
	DryRun
)

var outcomeNames = map[Outcome]string{
	Failed:      "failed",
	Unchanged:   "unchanged",
	CoolingDown: "cooling down",
	Busy:        "busy",
	Scaled:      "scaled",
	DryRun:      "dry run",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

// Result is returned by Tick.
type Result struct {
	ID       xid.ID
	Decision Decision
	Outcome  Outcome
	// Err is set when Outcome is Failed.
	Err error
}
