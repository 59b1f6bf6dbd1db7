package observer

import (
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Event is a single polling progress record.
type Event struct {
	Service  string    `json:"service"`
	JobID    string    `json:"job_id"`
	Status   string    `json:"status"`
	Terminal bool      `json:"terminal"`
	Attempt  int       `json:"attempt"`
	Time     time.Time `json:"time"`
}

func newEvent(service, jobID string, status poll.Status, attempt int) Event {
	return Event{
		Service:  service,
		JobID:    jobID,
		Status:   status.String(),
		Terminal: status.IsTerminal(),
		Attempt:  attempt,
		Time:     time.Now().UTC(),
	}
}

// Chain returns an Observer calling every non-nil observer in order.
func Chain(observers ...poll.Observer) poll.Observer {
	active := make([]poll.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	return func(status poll.Status, attempt int) {
		for _, o := range active {
			o(status, attempt)
		}
	}
}

// Log returns an Observer which logs every observed status at the info
// level.
func Log(l logger.Logger, service, jobID string) poll.Observer {
	return func(status poll.Status, attempt int) {
		l.Info("Job status.", "service", service, "job", jobID,
			"status", status, "attempt", attempt)
	}
}
