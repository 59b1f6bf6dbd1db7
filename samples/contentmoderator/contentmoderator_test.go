package contentmoderator_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/assert"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/mock"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/contentmoderator"
)

func newSession(t *testing.T, seq *mock.Sequence) *contentmoderator.Session {
	t.Helper()
	client, err := rest.NewClient("https://westus.api.cognitive.microsoft.com", rest.Options{
		HTTPClient: seq,
		Header:     samples.SubscriptionKey("key"),
		Logger:     logger.NoOpLogger{},
	})
	assert.IsNil(t, err)
	env := samples.Env{
		Policy: poll.Policy{Interval: time.Millisecond, Timeout: time.Second},
		Logger: logger.NoOpLogger{},
	}
	return contentmoderator.NewSession(client, config.Default().ContentModerator, env)
}

func TestMapping(t *testing.T) {
	tests := map[string]poll.Status{
		"Pending":    poll.Running,
		"InProgress": poll.Running,
		"Complete":   poll.Succeeded,
		"Failed":     poll.Failed,
		"Error":      poll.Failed,
		"Canceled":   poll.Cancelled,
	}
	for state, want := range tests {
		status, err := contentmoderator.Mapping.Map(state)
		assert.IsNil(t, err)
		assert.Equal(t, status, want)
	}
	_, err := contentmoderator.Mapping.Map("Archived")
	assert.ErrorIs(t, err, poll.ErrUnknownState)
}

func TestSession_Run(t *testing.T) {
	seq := mock.NewSequence(
		mock.Reply{Code: http.StatusOK, Body: `{"JobId":"job-1"}`},
		mock.Reply{Code: http.StatusOK, Body: `{"Id":"job-1","Status":"InProgress"}`},
		mock.Reply{Code: http.StatusServiceUnavailable},
		mock.Reply{Code: http.StatusOK, Body: `{"Id":"job-1","Status":"Complete","ReviewId":"r-1"}`},
	)
	session := newSession(t, seq)

	var out bytes.Buffer
	assert.IsNil(t, session.Run(context.Background(), &out))
	assert.Equal(t, session.JobIDs(), []string{"job-1"})
	assert.Contains(t, out.String(), `"ReviewId": "r-1"`)
	assert.Contains(t, out.String(), "Review job job-1 succeeded.")

	requests := seq.Requests()
	assert.Equal(t, len(requests), 4)
	create := requests[0]
	assert.Equal(t, create.Method, http.MethodPost)
	assert.Equal(t, create.URL.Path, "/contentmoderator/review/v1.0/teams/testreviewwilx/jobs")
	assert.Equal(t, create.URL.Query().Get("ContentType"), "Image")
	assert.Equal(t, create.URL.Query().Get("WorkflowName"), "default")
	assert.Equal(t, len(create.URL.Query().Get("ContentId")), 36)
	assert.Equal(t, create.Header.Get(rest.SubscriptionKeyHeader), "key")
	assert.True(t, strings.Contains(seq.Bodies()[0], "sample2.jpg"), "content url expected")
	assert.Equal(t, requests[3].URL.Path, "/contentmoderator/review/v1.0/teams/testreviewwilx/jobs/job-1")
}

func TestSession_RunUnknownState(t *testing.T) {
	seq := mock.NewSequence(
		mock.Reply{Code: http.StatusOK, Body: `{"JobId":"job-2"}`},
		mock.Reply{Code: http.StatusOK, Body: `{"Id":"job-2","Status":"Archived"}`},
	)
	var out bytes.Buffer
	err := newSession(t, seq).Run(context.Background(), &out)
	assert.ErrorIs(t, err, poll.ErrAborted)
	assert.ErrorIs(t, err, poll.ErrUnknownState)
	assert.Contains(t, out.String(), "Gave up on Review job job-2")
}

func TestSession_CreateJobError(t *testing.T) {
	seq := mock.NewSequence(mock.Reply{Code: http.StatusUnauthorized, Body: `{"error":"denied"}`})
	_, err := newSession(t, seq).CreateJob(context.Background())
	assert.ErrorIs(t, err, poll.ErrFatalQuery)
	assert.True(t, rest.IsStatus(err, http.StatusUnauthorized), "401 expected")
}
