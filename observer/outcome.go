package observer

import (
	"errors"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Outcome labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeTimedOut  = "timed_out"
	OutcomeAborted   = "aborted"
	OutcomeStopped   = "stopped"
)

// OutcomeOf classifies the result of a polling session. A job cancelled on
// the service side is "cancelled"; a wait cancelled by the caller is
// "stopped".
func OutcomeOf(status poll.Status, err error) string {
	switch {
	case errors.Is(err, poll.ErrCancelled):
		return OutcomeStopped
	case err != nil:
		return OutcomeAborted
	}
	switch status {
	case poll.Succeeded:
		return OutcomeSucceeded
	case poll.Failed:
		return OutcomeFailed
	case poll.Cancelled:
		return OutcomeCancelled
	default:
		return OutcomeTimedOut
	}
}
