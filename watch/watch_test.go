package watch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/assert"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/watch"
)

var testPolicy = poll.Policy{
	Interval: 10 * time.Millisecond,
	Timeout:  5 * time.Second,
}

// succeedsAfter returns a fetcher reporting Running until the n-th query.
func succeedsAfter(n int) poll.StatusFetcher {
	var calls atomic.Int32
	return func(context.Context) (poll.Status, error) {
		if int(calls.Add(1)) >= n {
			return poll.Succeeded, nil
		}
		return poll.Running, nil
	}
}

func running(context.Context) (poll.Status, error) {
	return poll.Running, nil
}

func TestAll(t *testing.T) {
	handles := []*job.Handle{
		job.NewHandle("a", succeedsAfter(1)),
		job.NewHandle("b", succeedsAfter(3)),
		job.NewHandle("c", func(context.Context) (poll.Status, error) {
			return poll.Failed, nil
		}),
	}

	var observed atomic.Int32
	results, err := watch.All(context.Background(), handles, testPolicy, watch.Options{
		ObserverFor: func(*job.Handle) poll.Observer {
			return func(poll.Status, int) { observed.Add(1) }
		},
	})
	assert.IsNil(t, err)
	assert.Equal(t, len(results), 3)
	assert.Equal(t, results["a"].Status, poll.Succeeded)
	assert.Equal(t, results["b"].Status, poll.Succeeded)
	assert.Equal(t, results["c"].Status, poll.Failed)
	assert.Equal(t, observed.Load(), int32(5))
}

func TestAll_FatalCancelsOthers(t *testing.T) {
	handles := []*job.Handle{
		job.NewHandle("fatal", func(context.Context) (poll.Status, error) {
			return poll.Pending, poll.Fatal(errors.New("401 unauthorized"))
		}),
		job.NewHandle("slow", running),
	}

	start := time.Now()
	results, err := watch.All(context.Background(), handles, testPolicy, watch.Options{})
	assert.True(t, time.Since(start) < time.Second, "sessions were not cancelled")
	assert.ErrorIs(t, err, poll.ErrAborted)
	assert.ErrorIs(t, err, poll.ErrFatalQuery)
	assert.ErrorIs(t, results["fatal"].Err, poll.ErrAborted)
	assert.ErrorIs(t, results["slow"].Err, poll.ErrCancelled)
}

func TestAll_ContinueOnError(t *testing.T) {
	handles := []*job.Handle{
		job.NewHandle("fatal", func(context.Context) (poll.Status, error) {
			return poll.Pending, poll.Fatal(errors.New("bad request"))
		}),
		job.NewHandle("ok", succeedsAfter(4)),
	}

	results, err := watch.All(context.Background(), handles, testPolicy,
		watch.Options{ContinueOnError: true})
	assert.ErrorIs(t, err, poll.ErrFatalQuery)
	assert.IsNil(t, results["ok"].Err)
	assert.Equal(t, results["ok"].Status, poll.Succeeded)
}

func TestAll_Limit(t *testing.T) {
	var active, peak atomic.Int32
	fetcher := func(context.Context) (poll.Status, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return poll.Succeeded, nil
	}
	handles := make([]*job.Handle, 6)
	for i := range handles {
		handles[i] = job.NewHandle(fmt.Sprintf("job-%d", i), fetcher)
	}

	results, err := watch.All(context.Background(), handles, testPolicy,
		watch.Options{Limit: 2})
	assert.IsNil(t, err)
	assert.Equal(t, len(results), 6)
	assert.True(t, peak.Load() <= 2, fmt.Sprintf("peak concurrency %d", peak.Load()))
}

func TestAll_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	results, err := watch.All(ctx, []*job.Handle{
		job.NewHandle("a", running),
		job.NewHandle("b", running),
	}, testPolicy, watch.Options{})
	assert.ErrorIs(t, err, poll.ErrCancelled)
	assert.ErrorIs(t, results["a"].Err, poll.ErrCancelled)
	assert.ErrorIs(t, results["b"].Err, poll.ErrCancelled)
}

func TestAll_InvalidArguments(t *testing.T) {
	_, err := watch.All(context.Background(), nil, poll.Policy{}, watch.Options{})
	assert.ErrorIs(t, err, poll.ErrInvalidPolicy)

	_, err = watch.All(context.Background(), []*job.Handle{
		job.NewHandle("dup", running),
		job.NewHandle("dup", running),
	}, testPolicy, watch.Options{})
	assert.NotEqual(t, err, nil)

	_, err = watch.All(context.Background(), []*job.Handle{nil}, testPolicy,
		watch.Options{})
	assert.NotEqual(t, err, nil)
}

func TestGroup_StopWait(t *testing.T) {
	g, err := watch.NewGroup(context.Background(), testPolicy, watch.Options{Limit: 3})
	assert.IsNil(t, err)

	var (
		mtx     sync.Mutex
		results = make(map[string]watch.Result)
	)
	collect := func(r watch.Result) {
		mtx.Lock()
		defer mtx.Unlock()
		results[r.ID] = r
	}
	for i := 0; i < 5; i++ {
		assert.IsNil(t, g.Submit(job.NewHandle(fmt.Sprintf("job-%d", i), succeedsAfter(i+1)), collect))
	}
	g.StopWait()

	assert.Equal(t, len(results), 5)
	for _, r := range results {
		assert.IsNil(t, r.Err)
		assert.Equal(t, r.Status, poll.Succeeded)
	}
	assert.ErrorIs(t, g.Submit(job.NewHandle("late", running), nil), watch.ErrGroupStopped)
}

func TestGroup_Stop(t *testing.T) {
	g, err := watch.NewGroup(context.Background(), testPolicy, watch.Options{Limit: 1})
	assert.IsNil(t, err)

	started := make(chan struct{})
	var once sync.Once
	result := make(chan watch.Result, 1)
	assert.IsNil(t, g.Submit(job.NewHandle("long", func(context.Context) (poll.Status, error) {
		once.Do(func() { close(started) })
		return poll.Running, nil
	}), func(r watch.Result) { result <- r }))

	<-started
	assert.Equal(t, g.Waiting(), 0)
	queued := make(chan watch.Result, 1)
	assert.IsNil(t, g.Submit(job.NewHandle("queued", running), func(r watch.Result) { queued <- r }))
	deadline := time.Now().Add(time.Second)
	for g.Waiting() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, g.Waiting(), 1)

	g.Stop()
	g.Stop()

	select {
	case r := <-result:
		assert.ErrorIs(t, r.Err, poll.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("running session was not cancelled")
	}
	// A queued job is either discarded or sees the cancelled context.
	select {
	case r := <-queued:
		assert.ErrorIs(t, r.Err, poll.ErrCancelled)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestGroup_InvalidPolicy(t *testing.T) {
	_, err := watch.NewGroup(context.Background(), poll.Policy{Interval: time.Second},
		watch.Options{})
	assert.ErrorIs(t, err, poll.ErrInvalidPolicy)
}
