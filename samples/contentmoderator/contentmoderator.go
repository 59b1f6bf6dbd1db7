// Package contentmoderator creates a Content Moderator image review job
// and waits for the moderation workflow to complete.
package contentmoderator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/matcher"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples"
)

// Service is the name used in logs, metrics and progress events.
const Service = "contentmoderator"

// Mapping maps review job states to job statuses.
var Mapping = poll.NewMapping(
	poll.Rule{Matcher: matcher.StateIn("Pending", "InProgress"), Status: poll.Running},
	poll.Rule{Matcher: matcher.StateIn("Complete", "Completed"), Status: poll.Succeeded},
	poll.Rule{Matcher: matcher.StateIn("Failed", "Error"), Status: poll.Failed},
	poll.Rule{Matcher: matcher.StateIn("Canceled", "Cancelled"), Status: poll.Cancelled},
)

// JobCreated is the response of the job creation call.
type JobCreated struct {
	JobID string `json:"JobId"`
}

// JobDetails is the state of a review job.
type JobDetails struct {
	ID                 string            `json:"Id"`
	TeamName           string            `json:"TeamName"`
	Status             string            `json:"Status"`
	WorkflowID         string            `json:"WorkflowId"`
	Type               string            `json:"Type"`
	CallBackEndpoint   string            `json:"CallBackEndpoint,omitempty"`
	ReviewID           string            `json:"ReviewId,omitempty"`
	ResultMetaData     []KeyValue        `json:"ResultMetaData,omitempty"`
	JobExecutionReport []ExecutionReport `json:"JobExecutionReport,omitempty"`
}

type KeyValue struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type ExecutionReport struct {
	Ts  string `json:"Ts"`
	Msg string `json:"Msg"`
}

// Session runs the sample against one team.
type Session struct {
	client *rest.Client
	info   config.ContentModeratorInfo
	env    samples.Env

	jobIDs []string
}

// NewSession returns a new Session.
func NewSession(client *rest.Client, info config.ContentModeratorInfo, env samples.Env) *Session {
	return &Session{client: client, info: info, env: env}
}

// JobIDs returns the ids of the jobs created by the session.
func (s *Session) JobIDs() []string {
	return append([]string(nil), s.jobIDs...)
}

func (s *Session) jobsPath() string {
	return "contentmoderator/review/v1.0/teams/" + url.PathEscape(s.info.Team) + "/jobs"
}

// CreateJob creates an image review job for the configured content URL.
func (s *Session) CreateJob(ctx context.Context) (string, error) {
	query := url.Values{
		"ContentType":  []string{"Image"},
		"ContentId":    []string{uuid.NewString()},
		"WorkflowName": []string{s.info.Workflow},
	}
	if s.info.CallbackEndpoint != "" {
		query.Set("CallBackEndpoint", s.info.CallbackEndpoint)
	}
	body := map[string]string{"ContentValue": s.info.ContentURL}

	var created JobCreated
	if err := s.client.Do(ctx, http.MethodPost, s.jobsPath(), query, body, &created); err != nil {
		return "", fmt.Errorf("create review job: %w", err)
	}
	if created.JobID == "" {
		return "", poll.Fatal(fmt.Errorf("create review job: empty job id"))
	}
	s.jobIDs = append(s.jobIDs, created.JobID)
	return created.JobID, nil
}

// JobDetails returns the current state of a review job.
func (s *Session) JobDetails(ctx context.Context, jobID string) (JobDetails, error) {
	var details JobDetails
	err := s.client.Get(ctx, s.jobsPath()+"/"+url.PathEscape(jobID), &details)
	return details, err
}

// Run creates a review job, prints its details and waits for the review
// workflow to finish.
func (s *Session) Run(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "1. Create moderation job for an image.")
	jobID, err := s.CreateJob(ctx)
	if err != nil {
		return err
	}
	samples.PrintJSON(out, JobCreated{JobID: jobID})

	tracker := job.NewTracker(
		func(ctx context.Context) (JobDetails, error) { return s.JobDetails(ctx, jobID) },
		job.StateOf(func(d JobDetails) string { return d.Status }, Mapping),
	)
	fmt.Fprintln(out, "2. Perform manual reviews on the Content Moderator site.")
	fmt.Fprintln(out, "Waiting for the review job to complete.")
	status, err := s.env.Await(ctx, Service, job.NewHandle(jobID, tracker.Fetch))

	if details := tracker.Result(); details != nil {
		fmt.Fprintln(out, "Job details:")
		samples.PrintJSON(out, details)
	}
	return samples.Report(out, "Review job "+jobID, status, err)
}
