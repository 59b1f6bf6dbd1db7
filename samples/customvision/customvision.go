// Package customvision trains a Custom Vision image classifier, waits for
// the training iteration to complete and publishes it.
package customvision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/matcher"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples"
)

const Service = "customvision"

// Mapping maps training iteration states to job statuses.
var Mapping = poll.NewMapping(
	poll.Rule{Matcher: matcher.StateEquals("Training"), Status: poll.Running},
	poll.Rule{Matcher: matcher.StateEquals("Completed"), Status: poll.Succeeded},
	poll.Rule{Matcher: matcher.StateEquals("Failed"), Status: poll.Failed},
)

const apiPath = "customvision/v3.3/training/projects"

type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Tag struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageCount int    `json:"imageCount"`
}

type ImageURLEntry struct {
	URL    string   `json:"url"`
	TagIDs []string `json:"tagIds,omitempty"`
}

type ImageURLBatch struct {
	Images []ImageURLEntry `json:"images"`
}

type ImageCreateResult struct {
	SourceURL string `json:"sourceUrl"`
	Status    string `json:"status"`
}

type ImageCreateSummary struct {
	IsBatchSuccessful bool                `json:"isBatchSuccessful"`
	Images            []ImageCreateResult `json:"images"`
}

// Iteration is a training iteration of a project.
type Iteration struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	PublishName string `json:"publishName,omitempty"`
}

// Session runs the sample with one training key.
type Session struct {
	client *rest.Client
	info   config.CustomVisionInfo
	env    samples.Env

	projectID string
}

// NewSession returns a new Session.
func NewSession(client *rest.Client, info config.CustomVisionInfo, env samples.Env) *Session {
	return &Session{client: client, info: info, env: env}
}

// ProjectID returns the id of the project created by the session.
func (s *Session) ProjectID() string {
	return s.projectID
}

func (s *Session) projectPath(elem ...string) string {
	parts := append([]string{apiPath, url.PathEscape(s.projectID)}, elem...)
	return strings.Join(parts, "/")
}

func (s *Session) post(ctx context.Context, path string, query url.Values, body, out any) error {
	return s.client.Do(ctx, http.MethodPost, path, query, body, out)
}

// CreateProject creates the project the classifier is trained in.
func (s *Session) CreateProject(ctx context.Context) (Project, error) {
	var project Project
	query := url.Values{"name": []string{s.info.ProjectName}}
	if err := s.post(ctx, apiPath, query, nil, &project); err != nil {
		return project, fmt.Errorf("create project: %w", err)
	}
	s.projectID = project.ID
	return project, nil
}

// CreateTag adds a tag to the project.
func (s *Session) CreateTag(ctx context.Context, name string) (Tag, error) {
	var tag Tag
	query := url.Values{"name": []string{name}}
	if err := s.post(ctx, s.projectPath("tags"), query, nil, &tag); err != nil {
		return tag, fmt.Errorf("create tag %s: %w", name, err)
	}
	return tag, nil
}

// AddImages adds images by URL, all labeled with tagID. A batch with a
// rejected image is an error.
func (s *Session) AddImages(ctx context.Context, tagID string, urls []string) error {
	batch := ImageURLBatch{Images: make([]ImageURLEntry, len(urls))}
	for i, u := range urls {
		batch.Images[i] = ImageURLEntry{URL: u, TagIDs: []string{tagID}}
	}
	var summary ImageCreateSummary
	if err := s.post(ctx, s.projectPath("images", "urls"), nil, batch, &summary); err != nil {
		return fmt.Errorf("add images: %w", err)
	}
	if summary.IsBatchSuccessful {
		return nil
	}
	var rejected []string
	for _, image := range summary.Images {
		if image.Status != "OK" && image.Status != "OKDuplicate" {
			rejected = append(rejected, image.SourceURL+": "+image.Status)
		}
	}
	return poll.Fatal(fmt.Errorf("add images: rejected %s", strings.Join(rejected, ", ")))
}

// Train queues a new training iteration.
func (s *Session) Train(ctx context.Context) (Iteration, error) {
	var iteration Iteration
	if err := s.post(ctx, s.projectPath("train"), nil, nil, &iteration); err != nil {
		return iteration, fmt.Errorf("train project: %w", err)
	}
	return iteration, nil
}

// GetIteration returns the current state of an iteration.
func (s *Session) GetIteration(ctx context.Context, iterationID string) (Iteration, error) {
	var iteration Iteration
	err := s.client.Get(ctx, s.projectPath("iterations", url.PathEscape(iterationID)), &iteration)
	return iteration, err
}

// Publish makes the iteration available to the prediction resource.
func (s *Session) Publish(ctx context.Context, iterationID string) error {
	query := url.Values{
		"publishName":  []string{s.info.PublishName},
		"predictionId": []string{s.info.PredictionResourceID},
	}
	path := s.projectPath("iterations", url.PathEscape(iterationID), "publish")
	if err := s.post(ctx, path, query, nil, nil); err != nil {
		return fmt.Errorf("publish iteration: %w", err)
	}
	return nil
}

// Upload creates the configured tags and adds their images with one
// request per tag.
func (s *Session) Upload(ctx context.Context, out io.Writer) error {
	tags := make([]Tag, len(s.info.Tags))
	for i, t := range s.info.Tags {
		tag, err := s.CreateTag(ctx, t.Name)
		if err != nil {
			return err
		}
		tags[i] = tag
	}

	fmt.Fprintln(out, "Adding images...")
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range s.info.Tags {
		tagID := tags[i].ID
		urls := t.ImageURLs
		g.Go(func() error {
			return s.AddImages(gctx, tagID, urls)
		})
	}
	return g.Wait()
}

// Run creates and trains the classifier and publishes the trained
// iteration when a prediction resource is configured.
func (s *Session) Run(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "Creating project...")
	project, err := s.CreateProject(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created project %s\n", project.ID)

	if err := s.Upload(ctx, out); err != nil {
		return err
	}

	fmt.Fprintln(out, "Training...")
	iteration, err := s.Train(ctx)
	if err != nil {
		return err
	}

	tracker := job.NewTracker(
		func(ctx context.Context) (Iteration, error) { return s.GetIteration(ctx, iteration.ID) },
		job.StateOf(func(it Iteration) string { return it.Status }, Mapping),
	)
	observe := func(poll.Status, int) {
		if it := tracker.Result(); it != nil {
			fmt.Fprintf(out, "Training status: %s\n", it.Status)
		}
	}
	handle := job.NewHandle(iteration.ID, tracker.Fetch)
	fmt.Fprintln(out, "Training started...")
	status, err := s.env.WithObserver(observe).Await(ctx, Service, handle)
	if err := samples.Report(out, "Training of iteration "+handle.ID(), status, err); err != nil {
		return err
	}
	if status != poll.Succeeded {
		return nil
	}

	if s.info.PredictionResourceID == "" {
		fmt.Fprintln(out, "No prediction resource configured, the iteration is not published.")
		return nil
	}
	if err := s.Publish(ctx, iteration.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Iteration %s published as %s\n", iteration.ID, s.info.PublishName)
	return nil
}
