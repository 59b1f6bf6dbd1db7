package observer

import (
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Publisher publishes a message on a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATS returns an Observer publishing a JSON Event for every observed
// status to "<subject>.<service>". Publish failures are logged and do not
// affect polling.
func NATS(pub Publisher, subject, service, jobID string, l logger.Logger) poll.Observer {
	subj := subject + "." + service
	return func(status poll.Status, attempt int) {
		data, err := json.Marshal(newEvent(service, jobID, status, attempt))
		if err != nil {
			l.Error("Failed to encode progress event.", "job", jobID, "error", err)
			return
		}
		if err := pub.Publish(subj, data); err != nil {
			l.Warn("Failed to publish progress event.", "subject", subj,
				"job", jobID, "error", err)
		}
	}
}

// ConnectNATS connects to the given NATS servers.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name(name), nats.MaxReconnects(5))
}
