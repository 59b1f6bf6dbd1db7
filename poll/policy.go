package poll

import (
	"fmt"
	"time"
)

// Policy configures a polling session.
type Policy struct {
	// Interval is the time between polls. It must be greater than zero.
	Interval time.Duration

	// Timeout is the maximum wall-clock time to wait, measured from the
	// first status query. It must not be less than Interval.
	Timeout time.Duration

	// MaxAttempts is the upper bound on the number of status queries.
	// Default: 0 (bounded by Timeout only).
	MaxAttempts int

	// MaxTransientRetries is the number of consecutive transient query
	// failures tolerated before the session is aborted.
	// Default: 0 (unlimited until Timeout).
	MaxTransientRetries int

	// Trigger computes the next poll time. When nil, polls are spaced
	// by Interval.
	Trigger Trigger
}

// NewDefaultPolicy returns a Policy with the default values.
func NewDefaultPolicy() Policy {
	return Policy{ // using explicit default values for visibility
		Interval:            10 * time.Second,
		Timeout:             10 * time.Minute,
		MaxAttempts:         0,
		MaxTransientRetries: 0,
	}
}

// Validate checks the policy and returns an error which unwraps to
// ErrInvalidPolicy if it cannot be used.
func (p Policy) Validate() error {
	switch {
	case p.Interval <= 0:
		return invalidPolicyError(fmt.Sprintf("interval must be positive, got %s", p.Interval))
	case p.Timeout < p.Interval:
		return invalidPolicyError(fmt.Sprintf("timeout %s is less than interval %s",
			p.Timeout, p.Interval))
	case p.MaxAttempts < 0:
		return invalidPolicyError(fmt.Sprintf("negative max attempts %d", p.MaxAttempts))
	case p.MaxTransientRetries < 0:
		return invalidPolicyError(fmt.Sprintf("negative max transient retries %d",
			p.MaxTransientRetries))
	}
	return nil
}

func (p Policy) trigger() Trigger {
	if p.Trigger != nil {
		return p.Trigger
	}
	return NewIntervalTrigger(p.Interval)
}
