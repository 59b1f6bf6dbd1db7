// Package luis builds a LUIS booking application, trains it, waits for all
// models to be trained and publishes it.
package luis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/matcher"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples"
)

const Service = "luis"

// Mapping maps model training states to job statuses.
var Mapping = poll.NewMapping(
	poll.Rule{Matcher: matcher.StateEquals("Queued"), Status: poll.Pending},
	poll.Rule{Matcher: matcher.StateEquals("InProgress"), Status: poll.Running},
	poll.Rule{Matcher: matcher.StateIn("UpToDate", "Success"), Status: poll.Succeeded},
	poll.Rule{Matcher: matcher.StateEquals("Fail"), Status: poll.Failed},
)

const apiPath = "luis/api/v2.0/apps"

type ApplicationCreate struct {
	Name             string `json:"name"`
	Culture          string `json:"culture"`
	InitialVersionID string `json:"initialVersionId"`
	Description      string `json:"description"`
}

type Entity struct {
	Name     string   `json:"name"`
	Children []string `json:"children,omitempty"`
}

type Intent struct {
	Name string `json:"name"`
}

type EntityLabel struct {
	EntityName     string `json:"entityName"`
	StartCharIndex int    `json:"startCharIndex"`
	EndCharIndex   int    `json:"endCharIndex"`
}

type Example struct {
	Text         string        `json:"text"`
	IntentName   string        `json:"intentName"`
	EntityLabels []EntityLabel `json:"entityLabels"`
}

type TrainingDetails struct {
	StatusID      int    `json:"statusId"`
	Status        string `json:"status"`
	ExampleCount  int    `json:"exampleCount"`
	FailureReason string `json:"failureReason,omitempty"`
}

// ModelTrainingStatus is the training state of a single model.
type ModelTrainingStatus struct {
	ModelID string          `json:"modelId"`
	Details TrainingDetails `json:"details"`
}

type PublishRequest struct {
	VersionID string `json:"versionId"`
	IsStaging bool   `json:"isStaging"`
	Region    string `json:"region"`
}

type ProductionSlot struct {
	EndpointURL    string `json:"endpointUrl"`
	EndpointRegion string `json:"endpointRegion"`
	IsStaging      bool   `json:"isStaging"`
	PublishedAt    string `json:"publishedDateTime"`
}

// Aggregate derives a version status from the status of its models: any
// failed model fails the version, which succeeds once every model has.
func Aggregate(models []ModelTrainingStatus) (poll.Status, error) {
	if len(models) == 0 {
		return poll.Pending, nil
	}
	var succeeded, running int
	for _, m := range models {
		status, err := Mapping.Map(m.Details.Status)
		if err != nil {
			return poll.Pending, err
		}
		switch status {
		case poll.Failed:
			return poll.Failed, nil
		case poll.Succeeded:
			succeeded++
		case poll.Running:
			running++
		}
	}
	switch {
	case succeeded == len(models):
		return poll.Succeeded, nil
	case running > 0:
		return poll.Running, nil
	default:
		return poll.Pending, nil
	}
}

// ExampleLabel labels value inside utterance, ignoring case.
func ExampleLabel(utterance, entityName, value string) EntityLabel {
	start := strings.Index(strings.ToLower(utterance), strings.ToLower(value))
	return EntityLabel{
		EntityName:     entityName,
		StartCharIndex: start,
		EndCharIndex:   start + len(value),
	}
}

// Session runs the sample with one authoring key.
type Session struct {
	client *rest.Client
	info   config.LUISInfo
	env    samples.Env

	appID string
}

// NewSession returns a new Session.
func NewSession(client *rest.Client, info config.LUISInfo, env samples.Env) *Session {
	return &Session{client: client, info: info, env: env}
}

// AppID returns the id of the application created by the session.
func (s *Session) AppID() string {
	return s.appID
}

func (s *Session) versionPath(elem ...string) string {
	parts := append([]string{apiPath, url.PathEscape(s.appID), "versions",
		url.PathEscape(s.info.VersionID)}, elem...)
	return strings.Join(parts, "/")
}

func (s *Session) post(ctx context.Context, path string, body, out any) error {
	return s.client.Do(ctx, http.MethodPost, path, nil, body, out)
}

// CreateApp creates a new application with a unique name.
func (s *Session) CreateApp(ctx context.Context) (string, error) {
	app := ApplicationCreate{
		Name:             fmt.Sprintf("%s-%d", s.info.AppName, time.Now().UnixMilli()),
		Culture:          s.info.Culture,
		InitialVersionID: s.info.VersionID,
		Description:      "New App created with LUIS Go sample",
	}
	var appID string
	if err := s.post(ctx, apiPath+"/", app, &appID); err != nil {
		return "", fmt.Errorf("create app: %w", err)
	}
	s.appID = appID
	return appID, nil
}

// AddEntity adds a simple, hierarchical or composite entity and returns
// its id.
func (s *Session) AddEntity(ctx context.Context, kind string, entity Entity) (string, error) {
	var id string
	if err := s.post(ctx, s.versionPath(kind), entity, &id); err != nil {
		return "", fmt.Errorf("add %s %s: %w", kind, entity.Name, err)
	}
	return id, nil
}

// AddIntent adds an intent and returns its id.
func (s *Session) AddIntent(ctx context.Context, name string) (string, error) {
	var id string
	if err := s.post(ctx, s.versionPath("intents"), Intent{Name: name}, &id); err != nil {
		return "", fmt.Errorf("add intent %s: %w", name, err)
	}
	return id, nil
}

// AddExamples adds labeled example utterances.
func (s *Session) AddExamples(ctx context.Context, examples []Example) error {
	if err := s.post(ctx, s.versionPath("examples"), examples, nil); err != nil {
		return fmt.Errorf("add examples: %w", err)
	}
	return nil
}

// Train starts training the version.
func (s *Session) Train(ctx context.Context) error {
	if err := s.post(ctx, s.versionPath("train"), nil, nil); err != nil {
		return fmt.Errorf("train version: %w", err)
	}
	return nil
}

// TrainingStatus returns the training state of every model of the version.
func (s *Session) TrainingStatus(ctx context.Context) ([]ModelTrainingStatus, error) {
	var models []ModelTrainingStatus
	err := s.client.Get(ctx, s.versionPath("train"), &models)
	return models, err
}

// Publish publishes the version to the production slot.
func (s *Session) Publish(ctx context.Context) (ProductionSlot, error) {
	var slot ProductionSlot
	request := PublishRequest{VersionID: s.info.VersionID, Region: s.info.Region}
	if err := s.post(ctx, apiPath+"/"+url.PathEscape(s.appID)+"/publish", request, &slot); err != nil {
		return slot, fmt.Errorf("publish app: %w", err)
	}
	return slot, nil
}

// Build creates the booking application model: two entities, a composite
// flight entity and a FindFlight intent with labeled utterances.
func (s *Session) Build(ctx context.Context, out io.Writer) error {
	const destination = "Destination"
	class := Entity{Name: "Class", Children: []string{"First", "Business", "Economy"}}
	flight := Entity{Name: "Flight", Children: []string{class.Name, destination}}

	id, err := s.AddEntity(ctx, "entities", Entity{Name: destination})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s simple entity created with id %s\n", destination, id)

	if id, err = s.AddEntity(ctx, "hierarchicalentities", class); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s hierarchical entity created with id %s\n", class.Name, id)

	if id, err = s.AddEntity(ctx, "compositeentities", flight); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s composite entity created with id %s\n", flight.Name, id)

	const intent = "FindFlight"
	if id, err = s.AddIntent(ctx, intent); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s intent created with id %s\n", intent, id)

	toMadrid := "find flights in economy to Madrid"
	toLondon := "find flights to London in first class"
	examples := []Example{{
		Text:       toMadrid,
		IntentName: intent,
		EntityLabels: []EntityLabel{
			ExampleLabel(toMadrid, flight.Name, "economy to madrid"),
			ExampleLabel(toMadrid, destination, "Madrid"),
			ExampleLabel(toMadrid, class.Name, "economy"),
		},
	}, {
		Text:       toLondon,
		IntentName: intent,
		EntityLabels: []EntityLabel{
			ExampleLabel(toLondon, flight.Name, "London in first class"),
			ExampleLabel(toLondon, destination, "London"),
			ExampleLabel(toLondon, class.Name, "first"),
		},
	}}
	if err := s.AddExamples(ctx, examples); err != nil {
		return err
	}
	fmt.Fprintf(out, "Utterances added to the %s intent\n", intent)
	return nil
}

// Run creates, trains and publishes the booking application.
func (s *Session) Run(ctx context.Context, out io.Writer) error {
	fmt.Fprintf(out, "Creating App %s, version %s\n", s.info.AppName, s.info.VersionID)
	appID, err := s.CreateApp(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created app %s\n", appID)

	if err := s.Build(ctx, out); err != nil {
		return err
	}

	fmt.Fprintln(out, "We'll start training your app...")
	if err := s.Train(ctx); err != nil {
		return err
	}

	tracker := job.NewTracker(s.TrainingStatus, Aggregate)
	handle := job.NewHandle(appID+"/"+s.info.VersionID, tracker.Fetch)
	fmt.Fprintln(out, "Waiting until your app is trained...")
	status, err := s.env.Await(ctx, Service, handle)
	if status == poll.Failed {
		if models := tracker.Result(); models != nil {
			for _, m := range *models {
				if m.Details.FailureReason != "" {
					fmt.Fprintf(out, "model %s: %s\n", m.ModelID, m.Details.FailureReason)
				}
			}
		}
	}
	if err := samples.Report(out, "Training of "+handle.ID(), status, err); err != nil {
		return err
	}
	if status != poll.Succeeded {
		return nil
	}

	fmt.Fprintln(out, "Your app is trained. We'll start publishing your app...")
	slot, err := s.Publish(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Your app is published. You can now go to test it on\n%s?q=\n", slot.EndpointURL)
	return nil
}
