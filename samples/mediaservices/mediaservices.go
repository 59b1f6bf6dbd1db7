// Package mediaservices submits a Media Services video analyzer job through
// the Azure Resource Manager API and waits for it to finish.
package mediaservices

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

const Service = "mediaservices"

// Mapping maps Media Services job states to job statuses.
var Mapping = poll.NewMapping(
	poll.Rule{Matcher: matcher.StateIn("Queued", "Scheduled"), Status: poll.Pending},
	poll.Rule{Matcher: matcher.StateIn("Processing", "Canceling"), Status: poll.Running},
	poll.Rule{Matcher: matcher.StateEquals("Finished"), Status: poll.Succeeded},
	poll.Rule{Matcher: matcher.StateEquals("Error"), Status: poll.Failed},
	poll.Rule{Matcher: matcher.StateEquals("Canceled"), Status: poll.Cancelled},
)

const (
	videoAnalyzerPreset = "#Microsoft.Media.VideoAnalyzerPreset"
	jobInputHTTP        = "#Microsoft.Media.JobInputHttp"
	jobOutputAsset      = "#Microsoft.Media.JobOutputAsset"
)

type Preset struct {
	ODataType     string  `json:"@odata.type"`
	AudioLanguage *string `json:"audioLanguage"`
}

type TransformOutput struct {
	Preset Preset `json:"preset"`
}

type Transform struct {
	Name       string `json:"name,omitempty"`
	Properties struct {
		Outputs []TransformOutput `json:"outputs"`
	} `json:"properties"`
}

type JobInput struct {
	ODataType string   `json:"@odata.type"`
	Files     []string `json:"files,omitempty"`
}

type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JobOutput struct {
	ODataType string    `json:"@odata.type"`
	AssetName string    `json:"assetName"`
	State     string    `json:"state,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	Error     *JobError `json:"error,omitempty"`
}

type JobProperties struct {
	State   string      `json:"state,omitempty"`
	Input   JobInput    `json:"input"`
	Outputs []JobOutput `json:"outputs"`
}

// Job is a Media Services transform job resource.
type Job struct {
	Name       string        `json:"name,omitempty"`
	Properties JobProperties `json:"properties"`
}

// Session runs the sample against one Media Services account.
type Session struct {
	client *rest.Client
	info   config.MediaServicesInfo
	env    samples.Env

	jobNames []string
	assets   []string
}

// NewSession returns a new Session.
func NewSession(client *rest.Client, info config.MediaServicesInfo, env samples.Env) *Session {
	return &Session{client: client, info: info, env: env}
}

func (s *Session) accountPath() string {
	return fmt.Sprintf("subscriptions/%s/resourceGroups/%s/providers/Microsoft.Media/mediaServices/%s",
		url.PathEscape(s.info.SubscriptionID), url.PathEscape(s.info.ResourceGroup),
		url.PathEscape(s.info.AccountName))
}

func (s *Session) transformPath() string {
	return s.accountPath() + "/transforms/" + url.PathEscape(s.info.TransformName)
}

func (s *Session) jobPath(name string) string {
	return s.transformPath() + "/jobs/" + url.PathEscape(name)
}

func (s *Session) assetPath(name string) string {
	return s.accountPath() + "/assets/" + url.PathEscape(name)
}

func (s *Session) query() url.Values {
	return url.Values{"api-version": []string{s.info.APIVersion}}
}

func (s *Session) put(ctx context.Context, path string, body, out any) error {
	return s.client.Do(ctx, http.MethodPut, path, s.query(), body, out)
}

// EnsureTransform creates or updates the video analyzer transform.
func (s *Session) EnsureTransform(ctx context.Context) error {
	var transform Transform
	transform.Properties.Outputs = []TransformOutput{{Preset: Preset{ODataType: videoAnalyzerPreset}}}
	if err := s.put(ctx, s.transformPath(), transform, nil); err != nil {
		return fmt.Errorf("create transform: %w", err)
	}
	return nil
}

// CreateAsset creates an empty asset.
func (s *Session) CreateAsset(ctx context.Context, name string) error {
	if err := s.put(ctx, s.assetPath(name), map[string]any{"properties": struct{}{}}, nil); err != nil {
		return fmt.Errorf("create asset %s: %w", name, err)
	}
	s.assets = append(s.assets, name)
	return nil
}

// SubmitJob submits a job analyzing the input URL into the output asset.
func (s *Session) SubmitJob(ctx context.Context, name, outputAsset string) (*Job, error) {
	request := Job{Properties: JobProperties{
		Input:   JobInput{ODataType: jobInputHTTP, Files: []string{s.info.InputURL}},
		Outputs: []JobOutput{{ODataType: jobOutputAsset, AssetName: outputAsset}},
	}}
	var created Job
	if err := s.put(ctx, s.jobPath(name), request, &created); err != nil {
		return nil, fmt.Errorf("submit job %s: %w", name, err)
	}
	s.jobNames = append(s.jobNames, name)
	return &created, nil
}

// GetJob returns the current state of a job.
func (s *Session) GetJob(ctx context.Context, name string) (Job, error) {
	var j Job
	err := s.client.Do(ctx, http.MethodGet, s.jobPath(name), s.query(), nil, &j)
	return j, err
}

// Cleanup deletes the jobs and assets created by the session.
func (s *Session) Cleanup(ctx context.Context) error {
	for _, name := range s.jobNames {
		if err := s.client.Do(ctx, http.MethodDelete, s.jobPath(name), s.query(), nil, nil); err != nil {
			return fmt.Errorf("delete job %s: %w", name, err)
		}
	}
	for _, name := range s.assets {
		if err := s.client.Do(ctx, http.MethodDelete, s.assetPath(name), s.query(), nil, nil); err != nil {
			return fmt.Errorf("delete asset %s: %w", name, err)
		}
	}
	s.jobNames, s.assets = nil, nil
	return nil
}

// Run creates the transform and an output asset, submits a job and waits
// for it to finish. Resources are deleted when the job succeeds.
func (s *Session) Run(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "creating video analyzer transform...")
	if err := s.EnsureTransform(ctx); err != nil {
		return err
	}

	uniqueness := uuid.NewString()
	outputAsset := s.info.NamePrefix + "-output-" + uniqueness
	jobName := s.info.NamePrefix + "-job-" + uniqueness

	fmt.Fprintln(out, "creating output asset...")
	if err := s.CreateAsset(ctx, outputAsset); err != nil {
		return err
	}

	fmt.Fprintln(out, "submitting job...")
	if _, err := s.SubmitJob(ctx, jobName, outputAsset); err != nil {
		return err
	}

	fmt.Fprintln(out, "waiting for job to finish...")
	tracker := job.NewTracker(
		func(ctx context.Context) (Job, error) { return s.GetJob(ctx, jobName) },
		job.StateOf(func(j Job) string { return j.Properties.State }, Mapping),
	)
	observe := func(poll.Status, int) {
		if j := tracker.Result(); j != nil {
			fmt.Fprintln(out, j.Properties.State)
		}
	}
	handle := job.NewHandle(jobName, tracker.Fetch)
	status, err := s.env.WithObserver(observe).Await(ctx, Service, handle)

	if status == poll.Failed {
		if j := tracker.Result(); j != nil {
			for _, output := range j.Properties.Outputs {
				if output.Error != nil {
					fmt.Fprintf(out, "%s failed. Error details:\n", jobName)
					samples.PrintJSON(out, output.Error)
				}
			}
		}
	}
	if err := samples.Report(out, jobName, status, err); err != nil {
		return err
	}
	if status == poll.Succeeded {
		fmt.Fprintf(out, "results are in asset %s\n", outputAsset)
		fmt.Fprintln(out, "deleting jobs and assets...")
		if err := s.Cleanup(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "done with sample")
	return nil
}
