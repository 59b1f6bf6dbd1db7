package job

import (
	"context"
	"sync"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Query returns the raw state name of a remote job as reported by the
// service, e.g. "Finished" or "NotStarted".
type Query func(ctx context.Context) (string, error)

// NewFetcher composes a state query and a mapping into a poll.StatusFetcher.
// Query errors pass through unchanged; mapping errors are fatal.
func NewFetcher(query Query, mapper poll.Mapper) poll.StatusFetcher {
	return func(ctx context.Context) (poll.Status, error) {
		state, err := query(ctx)
		if err != nil {
			return poll.Pending, err
		}
		status, err := mapper.Map(state)
		if err != nil {
			return poll.Pending, poll.Fatal(err)
		}
		return status, nil
	}
}

// Function represents a status call which returns a service payload of
// generic type R and a possible error.
type Function[R any] func(context.Context) (R, error)

// Classifier derives a Status from a service payload.
type Classifier[R any] func(R) (poll.Status, error)

// StateOf returns a Classifier which extracts a state name from the payload
// and maps it.
func StateOf[R any](state func(R) string, mapper poll.Mapper) Classifier[R] {
	return func(r R) (poll.Status, error) {
		return mapper.Map(state(r))
	}
}

// Tracker invokes a status Function and keeps the most recent payload, so
// that result details (errors, resource locations) can be read once the
// job is terminal.
type Tracker[R any] struct {
	mtx      sync.RWMutex
	function Function[R]
	classify Classifier[R]
	result   *R
	err      error
	status   poll.Status
}

// NewTracker returns a new Tracker.
func NewTracker[R any](function Function[R], classify Classifier[R]) *Tracker[R] {
	return &Tracker[R]{
		function: function,
		classify: classify,
		status:   poll.Pending,
	}
}

// Fetch implements poll.StatusFetcher. It invokes the held function,
// recording the payload, classification error and derived status.
func (t *Tracker[R]) Fetch(ctx context.Context) (poll.Status, error) {
	result, err := t.function(ctx)
	if err != nil {
		t.mtx.Lock()
		t.err = err
		status := t.status
		t.mtx.Unlock()
		return status, err
	}

	status, err := t.classify(result)
	if err != nil {
		err = poll.Fatal(err)
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.result = &result
	t.err = err
	if err == nil {
		t.status = status
	}
	return t.status, err
}

// Result returns the last payload received, or nil.
func (t *Tracker[R]) Result() *R {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.result
}

// Error returns the error of the last status call.
func (t *Tracker[R]) Error() error {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.err
}

// Status returns the last successfully derived status.
func (t *Tracker[R]) Status() poll.Status {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.status
}
