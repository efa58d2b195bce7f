// Package scaling computes the replica count a service should run for a
// given queue backlog.
package scaling

import (
	"fmt"
	"time"

	multierror "github.com/hashicorp/go-multierror"
)

// Config holds the bounds and timings of a scaling policy.
// It is built once at startup and never mutated.
type Config struct {
	// MessagesPerReplica is the backlog one replica is expected to absorb.
	// Zero disables the backlog signal; the policy then always asks for MinReplicas.
	MessagesPerReplica int
	MinReplicas        int
	MaxReplicas        int
	// Cooldown is the minimum time between two successful scaling actions.
	Cooldown time.Duration
	// Interval is how often the backlog is sampled.
	Interval time.Duration
}

// ConfigurationError describes an invalid scaling policy. It is fatal at startup.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Validate checks the policy bounds. All violations are reported together.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.MessagesPerReplica < 0 {
		errs = multierror.Append(errs, fmt.Errorf("messages per replica must be >= 0, got %d", c.MessagesPerReplica))
	}
	if c.MinReplicas < 0 {
		errs = multierror.Append(errs, fmt.Errorf("min replicas must be >= 0, got %d", c.MinReplicas))
	}
	if c.MaxReplicas < c.MinReplicas {
		errs = multierror.Append(errs, fmt.Errorf("max replicas (%d) must be >= min replicas (%d)", c.MaxReplicas, c.MinReplicas))
	}
	if c.Cooldown < 0 {
		errs = multierror.Append(errs, fmt.Errorf("cooldown must be >= 0, got %s", c.Cooldown))
	}
	if c.Interval <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("interval must be > 0, got %s", c.Interval))
	}
	if err := errs.ErrorOrNil(); err != nil {
		return &ConfigurationError{Err: err}
	}
	return nil
}

// DesiredReplicas returns ceil(observed / MessagesPerReplica) clamped to
// [MinReplicas, MaxReplicas]. A zero MessagesPerReplica yields MinReplicas.
func DesiredReplicas(observed int, conf Config) int {
	if conf.MessagesPerReplica == 0 {
		return conf.MinReplicas
	}
	if observed < 0 {
		observed = 0
	}
	desired := observed / conf.MessagesPerReplica
	if observed%conf.MessagesPerReplica != 0 {
		desired++
	}
	return Clamp(desired, conf)
}

// Clamp bounds n to [MinReplicas, MaxReplicas].
func Clamp(n int, conf Config) int {
	if n > conf.MaxReplicas {
		n = conf.MaxReplicas
	}
	if n < conf.MinReplicas {
		n = conf.MinReplicas
	}
	return n
}

// Direction returns "up" or "down" for a change from current to desired.
func Direction(current, desired int) string {
	if desired > current {
		return "up"
	}
	return "down"
}
