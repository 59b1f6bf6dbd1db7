package customvision_test

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
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples/customvision"
)

const projectPath = "/customvision/v3.3/training/projects/p-1"

func newSession(t *testing.T, seq *mock.Sequence, policy poll.Policy,
	info config.CustomVisionInfo) *customvision.Session {
	t.Helper()
	client, err := rest.NewClient(info.Endpoint, rest.Options{
		HTTPClient: seq,
		Header:     samples.TrainingKey("key"),
		Logger:     logger.NoOpLogger{},
	})
	assert.IsNil(t, err)
	env := samples.Env{Policy: policy, Logger: logger.NoOpLogger{}}
	return customvision.NewSession(client, info, env)
}

func withPrediction() config.CustomVisionInfo {
	info := config.Default().CustomVision
	info.PredictionResourceID = "/subscriptions/1/resourceGroups/cv/providers/Microsoft.CognitiveServices/accounts/cv"
	return info
}

func reply(body string) mock.Reply {
	return mock.Reply{Code: http.StatusOK, Body: body}
}

func iteration(status string) mock.Reply {
	return reply(`{"id":"it-1","name":"Iteration 1","status":"` + status + `"}`)
}

// setup replies to project creation, two tags and their image uploads.
func setup() []mock.Reply {
	return []mock.Reply{
		reply(`{"id":"p-1","name":"Sample Project"}`),
		reply(`{"id":"t-1","name":"Hemlock"}`),
		reply(`{"id":"t-2","name":"Japanese Cherry"}`),
		reply(`{"isBatchSuccessful":true,"images":[]}`),
		reply(`{"isBatchSuccessful":true,"images":[]}`),
	}
}

func TestMapping(t *testing.T) {
	tests := map[string]poll.Status{
		"Training":  poll.Running,
		"Completed": poll.Succeeded,
		"Failed":    poll.Failed,
	}
	for state, want := range tests {
		status, err := customvision.Mapping.Map(state)
		assert.IsNil(t, err)
		assert.Equal(t, status, want)
	}

	_, err := customvision.Mapping.Map("Exported")
	assert.ErrorIs(t, err, poll.ErrUnknownState)
}

func TestSession_Run(t *testing.T) {
	replies := append(setup(),
		iteration("Training"),  // train
		iteration("Training"),  // poll 1
		iteration("Completed"), // poll 2
		reply(`true`),          // publish
	)
	seq := mock.NewSequence(replies...)
	session := newSession(t, seq, poll.Policy{Interval: time.Millisecond, Timeout: time.Second},
		withPrediction())

	var out bytes.Buffer
	assert.IsNil(t, session.Run(context.Background(), &out))
	assert.Equal(t, session.ProjectID(), "p-1")
	assert.Contains(t, out.String(), "Training status: Training\nTraining status: Completed\n")
	assert.Contains(t, out.String(), "Training of iteration it-1 succeeded.")
	assert.Contains(t, out.String(), "Iteration it-1 published as classifyModel")

	requests := seq.Requests()
	assert.Equal(t, len(requests), 9)
	assert.Equal(t, requests[0].URL.Path, "/customvision/v3.3/training/projects")
	assert.Equal(t, requests[0].URL.Query().Get("name"), "Sample Project")
	assert.Equal(t, requests[0].Header.Get("Training-Key"), "key")
	assert.Equal(t, requests[2].URL.Path, projectPath+"/tags")
	assert.Equal(t, requests[2].URL.Query().Get("name"), "Japanese Cherry")
	assert.Equal(t, requests[3].URL.Path, projectPath+"/images/urls")
	uploads := seq.Bodies()[3] + seq.Bodies()[4]
	assert.Contains(t, uploads, `"tagIds":["t-1"]`)
	assert.Contains(t, uploads, `"tagIds":["t-2"]`)
	assert.Contains(t, uploads, "hemlock_1.jpg")
	assert.Equal(t, requests[5].URL.Path, projectPath+"/train")
	assert.Equal(t, requests[6].Method, http.MethodGet)
	assert.Equal(t, requests[6].URL.Path, projectPath+"/iterations/it-1")
	assert.Equal(t, requests[8].Method, http.MethodPost)
	assert.Equal(t, requests[8].URL.Path, projectPath+"/iterations/it-1/publish")
	assert.Equal(t, requests[8].URL.Query().Get("publishName"), "classifyModel")
	assert.Contains(t, requests[8].URL.Query().Get("predictionId"), "accounts/cv")
}

func TestSession_RunTimedOut(t *testing.T) {
	seq := mock.NewSequence(append(setup(), iteration("Training"))...)
	session := newSession(t, seq, poll.Policy{Interval: 5 * time.Millisecond, Timeout: 15 * time.Millisecond},
		withPrediction())

	var out bytes.Buffer
	assert.IsNil(t, session.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "Training of iteration it-1 timed out and is still in progress.")

	requests := seq.Requests()
	n := len(requests) - 6
	assert.True(t, n >= 1 && n <= 4, "expected between 1 and 4 status queries")
	for _, r := range requests {
		assert.True(t, !strings.HasSuffix(r.URL.Path, "/publish"), "timed out iteration must not be published")
	}
}

func TestSession_RunTrainingFailed(t *testing.T) {
	seq := mock.NewSequence(append(setup(), iteration("Training"), iteration("Failed"))...)
	session := newSession(t, seq, poll.Policy{Interval: time.Millisecond, Timeout: time.Second},
		withPrediction())

	var out bytes.Buffer
	assert.IsNil(t, session.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "Training of iteration it-1 failed.")
	assert.Equal(t, len(seq.Requests()), 7)
}

func TestSession_RunWithoutPredictionResource(t *testing.T) {
	seq := mock.NewSequence(append(setup(), iteration("Training"), iteration("Completed"))...)
	session := newSession(t, seq, poll.Policy{Interval: time.Millisecond, Timeout: time.Second},
		config.Default().CustomVision)

	var out bytes.Buffer
	assert.IsNil(t, session.Run(context.Background(), &out))
	assert.Contains(t, out.String(), "the iteration is not published.")
	assert.Equal(t, len(seq.Requests()), 7)
}

func TestSession_RunRejectedImages(t *testing.T) {
	replies := setup()
	rejected := reply(`{"isBatchSuccessful":false,"images":[` +
		`{"sourceUrl":"https://example.com/a.jpg","status":"OK"},` +
		`{"sourceUrl":"https://example.com/b.jpg","status":"ErrorSource"}]}`)
	replies[3], replies[4] = rejected, rejected
	seq := mock.NewSequence(replies...)
	session := newSession(t, seq, poll.Policy{Interval: time.Millisecond, Timeout: time.Second},
		withPrediction())

	err := session.Run(context.Background(), &bytes.Buffer{})
	assert.NotEqual(t, err, nil)
	assert.Contains(t, err.Error(), "https://example.com/b.jpg: ErrorSource")
	assert.True(t, !strings.Contains(err.Error(), "a.jpg"), "accepted images are not reported")
	for _, r := range seq.Requests() {
		assert.True(t, !strings.HasSuffix(r.URL.Path, "/train"), "training must not start")
	}
}
