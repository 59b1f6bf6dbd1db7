package watch

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Result is the outcome of awaiting a single job.
type Result struct {
	ID     string
	Status poll.Status
	Err    error
}

// Options configures All.
type Options struct {
	// Limit is the maximum number of jobs polled at the same time.
	// Default: 0 (no limit).
	Limit int

	// ContinueOnError keeps the other sessions running when one of them
	// aborts with an error. By default the first aborted session cancels
	// the rest.
	ContinueOnError bool

	// PollOptions are applied to every polling session.
	PollOptions []poll.Option

	// ObserverFor returns an additional observer for a job. Optional.
	ObserverFor func(h *job.Handle) poll.Observer
}

// All awaits every handle concurrently and returns the results keyed by
// job id. The returned error is the first session error, if any; the
// results map always holds an entry for every handle.
func All(ctx context.Context, handles []*job.Handle, policy poll.Policy,
	opts Options) (map[string]Result, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		if h == nil {
			return nil, errors.New("watch: nil job handle")
		}
		if _, ok := ids[h.ID()]; ok {
			return nil, errors.New("watch: duplicate job id " + h.ID())
		}
		ids[h.ID()] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Limit > 0 {
		g.SetLimit(opts.Limit)
	}
	sessionCtx := gctx
	if opts.ContinueOnError {
		sessionCtx = ctx
	}

	var (
		mtx      sync.Mutex
		results  = make(map[string]Result, len(handles))
		firstErr error
	)
	for _, h := range handles {
		h := h
		g.Go(func() error {
			status, err := h.Await(sessionCtx, policy, sessionOptions(h, opts)...)
			mtx.Lock()
			results[h.ID()] = Result{ID: h.ID(), Status: status, Err: err}
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mtx.Unlock()
			if opts.ContinueOnError {
				return nil
			}
			return err
		})
	}
	_ = g.Wait()
	return results, firstErr
}

func sessionOptions(h *job.Handle, opts Options) []poll.Option {
	pollOpts := append([]poll.Option(nil), opts.PollOptions...)
	if opts.ObserverFor != nil {
		pollOpts = append(pollOpts, poll.WithObserver(opts.ObserverFor(h)))
	}
	return pollOpts
}
