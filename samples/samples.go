// Package samples holds what the service samples share: the polling
// environment, client construction and result reporting.
package samples

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/observer"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Env is the polling environment of a sample.
type Env struct {
	Policy poll.Policy
	Logger logger.Logger

	// Observer returns an additional observer for a job. Optional.
	Observer func(service, jobID string) poll.Observer

	// Outcome is called when a polling session ends. Optional.
	Outcome func(service string, submittedAt time.Time, status poll.Status, err error)
}

func (e Env) logger() logger.Logger {
	if e.Logger == nil {
		return logger.Default()
	}
	return e.Logger
}

// Await waits for the job behind h to reach a terminal status.
func (e Env) Await(ctx context.Context, service string, h *job.Handle) (poll.Status, error) {
	opts := []poll.Option{poll.WithLogger(e.logger())}
	if e.Observer != nil {
		opts = append(opts, poll.WithObserver(e.Observer(service, h.ID())))
	}
	status, err := h.Await(ctx, e.Policy, opts...)
	if e.Outcome != nil {
		e.Outcome(service, h.SubmittedAt(), status, err)
	}
	return status, err
}

// WithObserver returns a copy of e which also calls extra for every job.
func (e Env) WithObserver(extra poll.Observer) Env {
	base := e.Observer
	e.Observer = func(service, jobID string) poll.Observer {
		if base == nil {
			return extra
		}
		return observer.Chain(base(service, jobID), extra)
	}
	return e
}

// Credential adds a secret to outgoing requests.
type Credential func(secret string) http.Header

// SubscriptionKey authenticates with the Cognitive Services key header.
func SubscriptionKey(key string) http.Header {
	return http.Header{rest.SubscriptionKeyHeader: []string{key}}
}

// TrainingKey authenticates with the Custom Vision training key header.
func TrainingKey(key string) http.Header {
	return http.Header{rest.TrainingKeyHeader: []string{key}}
}

// BearerToken authenticates with an OAuth bearer token.
func BearerToken(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

// NewClient returns a REST client for a service, reading its secret from
// the environment variable named by the service block.
func NewClient(svc config.ServiceInfo, settings config.HTTPSettings,
	credential Credential, httpClient rest.HTTPHandler, l logger.Logger) (*rest.Client, error) {
	secret, err := config.Key(svc.KeyEnv)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: settings.Timeout}
	}
	return rest.NewClient(svc.Endpoint, rest.Options{
		HTTPClient: httpClient,
		Header:     credential(secret),
		Throttle:   settings.Throttle,
		Logger:     l,
	})
}

// Report prints how a polling session ended and returns err.
func Report(w io.Writer, jobID string, status poll.Status, err error) error {
	switch {
	case errors.Is(err, poll.ErrCancelled):
		fmt.Fprintf(w, "Stopped waiting for %s, last status %s.\n", jobID, status)
	case err != nil:
		fmt.Fprintf(w, "Gave up on %s after an error: %v\n", jobID, err)
	case status == poll.Succeeded:
		fmt.Fprintf(w, "%s succeeded.\n", jobID)
	case status == poll.Failed:
		fmt.Fprintf(w, "%s failed.\n", jobID)
	case status == poll.Cancelled:
		fmt.Fprintf(w, "%s was unexpectedly canceled.\n", jobID)
	case status == poll.TimedOut:
		fmt.Fprintf(w, "%s timed out and is still in progress.\n", jobID)
	}
	return err
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%+v\n", v)
		return
	}
	fmt.Fprintln(w, string(data))
}
