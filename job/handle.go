package job

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Handle identifies a remote job created by a service call and carries the
// capability to query its status. The poller never owns a Handle; the
// caller discards it once the terminal status and any result were read.
type Handle struct {
	id          string
	submittedAt time.Time
	fetcher     poll.StatusFetcher
}

// NewHandle returns a new Handle submitted now.
func NewHandle(id string, fetcher poll.StatusFetcher) *Handle {
	return NewHandleAt(id, time.Now(), fetcher)
}

// NewHandleAt returns a new Handle with an explicit submission time.
func NewHandleAt(id string, submittedAt time.Time, fetcher poll.StatusFetcher) *Handle {
	return &Handle{
		id:          id,
		submittedAt: submittedAt,
		fetcher:     fetcher,
	}
}

// ID returns the opaque job identifier.
func (h *Handle) ID() string {
	return h.id
}

// SubmittedAt returns the job submission time.
func (h *Handle) SubmittedAt() time.Time {
	return h.submittedAt
}

// Fetcher returns the status fetcher of the job.
func (h *Handle) Fetcher() poll.StatusFetcher {
	return h.fetcher
}

// Status issues a single status query.
func (h *Handle) Status(ctx context.Context) (poll.Status, error) {
	return h.fetcher(ctx)
}

// Await waits for the job to reach a terminal status, naming the polling
// session after the job id.
func (h *Handle) Await(ctx context.Context, policy poll.Policy,
	opts ...poll.Option) (poll.Status, error) {
	opts = append([]poll.Option{poll.WithName(h.id)}, opts...)
	return poll.Await(ctx, h.fetcher, policy, opts...)
}

// Description returns the description of the Handle.
func (h *Handle) Description() string {
	return fmt.Sprintf("Handle%s%s%s%s", poll.Sep, h.id, poll.Sep,
		h.submittedAt.UTC().Format(time.RFC3339))
}
