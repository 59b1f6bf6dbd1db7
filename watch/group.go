package watch

import (
	"context"
	"errors"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// ErrGroupStopped is returned when a job is submitted to a stopped Group.
var ErrGroupStopped = errors.New("watch group is stopped")

// Callback receives the result of a finished polling session.
type Callback func(Result)

// Group polls submitted jobs on a bounded pool of workers.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	pool   *workerpool.WorkerPool
	policy poll.Policy
	opts   Options
	logger logger.Logger

	mtx     sync.Mutex
	stopped bool
}

// NewGroup returns a new Group polling at most opts.Limit jobs at a time.
// A non-positive limit defaults to a single worker. The sessions are
// cancelled when ctx is done or Stop is called.
func NewGroup(ctx context.Context, policy poll.Policy, opts Options) (*Group, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}
	gctx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    gctx,
		cancel: cancel,
		pool:   workerpool.New(limit),
		policy: policy,
		opts:   opts,
		logger: logger.Default(),
	}, nil
}

// Submit queues the job for polling. The callback, if not nil, is called
// from a worker goroutine once the session ends.
func (g *Group) Submit(h *job.Handle, callback Callback) error {
	if h == nil {
		return errors.New("watch: nil job handle")
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if g.stopped {
		return ErrGroupStopped
	}
	g.pool.Submit(func() {
		status, err := h.Await(g.ctx, g.policy, sessionOptions(h, g.opts)...)
		g.logger.Debug("Job watch finished.", "job", h.ID(), "status", status,
			"error", err)
		if callback != nil {
			callback(Result{ID: h.ID(), Status: status, Err: err})
		}
	})
	return nil
}

// Waiting returns the number of queued jobs not yet picked up by a worker.
func (g *Group) Waiting() int {
	return g.pool.WaitingQueueSize()
}

// Stop cancels running sessions and discards queued jobs.
func (g *Group) Stop() {
	if !g.markStopped() {
		return
	}
	g.cancel()
	g.pool.Stop()
}

// StopWait stops accepting jobs and waits for every submitted job to
// finish polling.
func (g *Group) StopWait() {
	if !g.markStopped() {
		return
	}
	g.pool.StopWait()
	g.cancel()
}

func (g *Group) markStopped() bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if g.stopped {
		return false
	}
	g.stopped = true
	return true
}
