package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
)

// StatusFetcher queries the current status of a single remote job.
// The job identity is captured by the closure. Errors should be marked with
// Transient or Fatal; unmarked errors are treated as fatal.
type StatusFetcher func(ctx context.Context) (Status, error)

// Observer is invoked synchronously after every successful status query
// with the observed status and the 1-based attempt number.
type Observer func(status Status, attempt int)

// Option configures a Poller.
type Option func(*Poller)

// WithObserver registers an observer. Multiple observers are called in
// registration order.
func WithObserver(observer Observer) Option {
	return func(p *Poller) {
		if observer != nil {
			p.observers = append(p.observers, observer)
		}
	}
}

// WithLogger sets the logger used to report polling progress.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithName sets the name attached to log records, usually the job id.
func WithName(name string) Option {
	return func(p *Poller) {
		p.name = name
	}
}

// Poller repeatedly queries a job status until it becomes terminal.
// A Poller holds only configuration; every Await call is an independent
// session, so a single Poller may be shared across goroutines.
type Poller struct {
	policy    Policy
	trigger   Trigger
	observers []Observer
	logger    logger.Logger
	name      string
}

// NewPoller returns a new Poller for the given policy.
// It returns an error which unwraps to ErrInvalidPolicy if the policy is
// not valid.
func NewPoller(policy Policy, opts ...Option) (*Poller, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	p := &Poller{
		policy:  policy,
		trigger: policy.trigger(),
		logger:  logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Await validates the policy and waits for the job behind fetcher to reach
// a terminal status. See Poller.Await.
func Await(ctx context.Context, fetcher StatusFetcher, policy Policy,
	opts ...Option) (Status, error) {
	p, err := NewPoller(policy, opts...)
	if err != nil {
		return Pending, err
	}
	return p.Await(ctx, fetcher)
}

// Policy returns the policy of the Poller.
func (p *Poller) Policy() Policy {
	return p.policy
}

// Await queries the status immediately and then once per trigger period
// until a terminal status is observed, which is returned with a nil error.
//
// If the next poll would fall after the deadline, or MaxAttempts queries
// have been issued, Await returns TimedOut. A fatal query error, or more
// than MaxTransientRetries consecutive transient ones, aborts with an error
// which unwraps to ErrAborted. If ctx is done, Await stops before the next
// poll and returns an error which unwraps to ErrCancelled.
// On error, the returned status is the last one observed.
func (p *Poller) Await(ctx context.Context, fetcher StatusFetcher) (Status, error) {
	if fetcher == nil {
		return Pending, illegalArgumentError("status fetcher is nil")
	}

	var (
		status    = Pending
		attempt   int
		transient int
		deadline  time.Time
	)
	for {
		if ctx.Err() != nil {
			p.logger.Debug("Polling cancelled.", "job", p.name, "attempt", attempt)
			return status, cancelledError(ctx)
		}

		polledAt := time.Now()
		if attempt == 0 {
			deadline = polledAt.Add(p.policy.Timeout)
		}
		attempt++

		current, err := fetcher(ctx)
		switch {
		case err == nil:
			transient = 0
			status = current
			p.logger.Trace("Job status received.", "job", p.name,
				"attempt", attempt, "status", current)
			p.observe(current, attempt)
			if current.IsTerminal() {
				return current, nil
			}

		case ctx.Err() != nil:
			return status, cancelledError(ctx)

		case IsTransient(err):
			transient++
			p.logger.Warn("Transient status query error.", "job", p.name,
				"attempt", attempt, "error", err)
			if p.policy.MaxTransientRetries > 0 && transient > p.policy.MaxTransientRetries {
				return status, abortedError(fmt.Errorf("%d consecutive failures: %w",
					transient, err))
			}

		default:
			p.logger.Error("Fatal status query error.", "job", p.name,
				"attempt", attempt, "error", err)
			return status, abortedError(err)
		}

		if p.policy.MaxAttempts > 0 && attempt >= p.policy.MaxAttempts {
			p.logger.Info("Maximum poll attempts reached.", "job", p.name,
				"attempts", attempt, "status", status)
			return TimedOut, nil
		}

		next, err := p.trigger.NextPollTime(polledAt, attempt)
		if err != nil {
			p.logger.Warn("No next poll time.", "job", p.name, "error", err)
			return TimedOut, nil
		}
		if next.After(deadline) {
			p.logger.Info("Job timed out.", "job", p.name,
				"timeout", p.policy.Timeout, "status", status)
			return TimedOut, nil
		}

		if err := sleepUntil(ctx, next); err != nil {
			p.logger.Debug("Polling cancelled.", "job", p.name, "attempt", attempt)
			return status, cancelledError(ctx)
		}
	}
}

func (p *Poller) observe(status Status, attempt int) {
	for _, observer := range p.observers {
		p.safeObserve(observer, status, attempt)
	}
}

func (p *Poller) safeObserve(observer Observer, status Status, attempt int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Observer panicked.", "job", p.name,
				"attempt", attempt, "panic", r)
		}
	}()
	observer(status, attempt)
}

// sleepUntil blocks until t or until ctx is done, whichever happens first.
func sleepUntil(ctx context.Context, t time.Time) error {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
