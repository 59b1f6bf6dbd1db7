package poll

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gorhill/cronexpr"
)

// Trigger computes the time of the next status query.
type Trigger interface {
	// NextPollTime returns the time of the next poll, given the time of
	// the previous poll and its 1-based attempt number.
	NextPollTime(prev time.Time, attempt int) (time.Time, error)

	// Description returns the description of the Trigger.
	Description() string
}

// IntervalTrigger spaces polls by a fixed interval.
type IntervalTrigger struct {
	Interval time.Duration
}

// Verify IntervalTrigger satisfies the Trigger interface.
var _ Trigger = (*IntervalTrigger)(nil)

// NewIntervalTrigger returns a new IntervalTrigger using the given interval.
func NewIntervalTrigger(interval time.Duration) *IntervalTrigger {
	return &IntervalTrigger{Interval: interval}
}

// NextPollTime returns prev shifted by the interval.
func (t *IntervalTrigger) NextPollTime(prev time.Time, _ int) (time.Time, error) {
	return prev.Add(t.Interval), nil
}

// Description returns the description of the trigger.
func (t *IntervalTrigger) Description() string {
	return fmt.Sprintf("IntervalTrigger%s%s", Sep, t.Interval)
}

// BackoffTrigger doubles the delay after every poll, starting from Initial
// and capped at Max. With Jitter set, the delay is drawn at random from
// the upper half of the computed value.
type BackoffTrigger struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// Verify BackoffTrigger satisfies the Trigger interface.
var _ Trigger = (*BackoffTrigger)(nil)

// NewBackoffTrigger returns a new BackoffTrigger without jitter.
func NewBackoffTrigger(initial, maxDelay time.Duration) *BackoffTrigger {
	return &BackoffTrigger{Initial: initial, Max: maxDelay}
}

// Delay returns the delay after the given attempt.
func (t *BackoffTrigger) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(t.Initial) * math.Pow(2, float64(attempt-1))
	if t.Max > 0 && d > float64(t.Max) {
		d = float64(t.Max)
	}
	if t.Jitter {
		half := d / 2
		d = half + rand.Float64()*half //nolint:gosec
	}
	return time.Duration(d)
}

// NextPollTime returns prev shifted by the backoff delay.
func (t *BackoffTrigger) NextPollTime(prev time.Time, attempt int) (time.Time, error) {
	return prev.Add(t.Delay(attempt)), nil
}

// Description returns the description of the trigger.
func (t *BackoffTrigger) Description() string {
	return fmt.Sprintf("BackoffTrigger%s%s%s%s", Sep, t.Initial, Sep, t.Max)
}

// CronTrigger schedules polls at the fire times of a cron expression,
// e.g. "* * * * *" polls on every minute boundary.
type CronTrigger struct {
	expression string
	expr       *cronexpr.Expression
	location   *time.Location
}

// Verify CronTrigger satisfies the Trigger interface.
var _ Trigger = (*CronTrigger)(nil)

// NewCronTrigger returns a new CronTrigger using the UTC location.
func NewCronTrigger(expression string) (*CronTrigger, error) {
	return NewCronTriggerWithLoc(expression, time.UTC)
}

// NewCronTriggerWithLoc returns a new CronTrigger with the given time.Location.
func NewCronTriggerWithLoc(expression string, location *time.Location) (*CronTrigger, error) {
	if location == nil {
		return nil, illegalArgumentError("location is nil")
	}
	expr, err := cronexpr.Parse(expression)
	if err != nil {
		return nil, cronParseError(err.Error())
	}
	return &CronTrigger{
		expression: expression,
		expr:       expr,
		location:   location,
	}, nil
}

// NextPollTime returns the first fire time of the expression after prev.
func (t *CronTrigger) NextPollTime(prev time.Time, _ int) (time.Time, error) {
	next := t.expr.Next(prev.In(t.location))
	if next.IsZero() {
		return time.Time{}, errors.New("cron expression has no next fire time")
	}
	return next, nil
}

// Description returns the description of the trigger.
func (t *CronTrigger) Description() string {
	return fmt.Sprintf("CronTrigger%s%s%s%s", Sep, t.expression, Sep, t.location)
}
