// Package qnamaker creates, updates and publishes a QnA Maker knowledge
// base, waiting for each long-running operation to finish.
package qnamaker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/config"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/job"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/matcher"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/samples"
)

const Service = "qnamaker"

// Mapping maps operation states to job statuses.
var Mapping = poll.NewMapping(
	poll.Rule{Matcher: matcher.StateEquals("NotStarted"), Status: poll.Pending},
	poll.Rule{Matcher: matcher.StateEquals("Running"), Status: poll.Running},
	poll.Rule{Matcher: matcher.StateEquals("Succeeded"), Status: poll.Succeeded},
	poll.Rule{Matcher: matcher.StateEquals("Failed"), Status: poll.Failed},
)

const apiPath = "qnamaker/v4.0"

type Metadata struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type QnA struct {
	ID        int        `json:"id"`
	Answer    string     `json:"answer"`
	Source    string     `json:"source"`
	Questions []string   `json:"questions"`
	Metadata  []Metadata `json:"metadata"`
}

type CreateKB struct {
	Name    string   `json:"name"`
	QnAList []QnA    `json:"qnaList"`
	URLs    []string `json:"urls"`
	Files   []any    `json:"files"`
}

type UpdateKB struct {
	Add    *UpdateAdd    `json:"add,omitempty"`
	Delete *UpdateDelete `json:"delete,omitempty"`
	Update *UpdateName   `json:"update,omitempty"`
}

type UpdateAdd struct {
	QnAList []QnA    `json:"qnaList"`
	URLs    []string `json:"urls"`
	Files   []any    `json:"files"`
}

type UpdateDelete struct {
	IDs []int `json:"ids"`
}

type UpdateName struct {
	Name string `json:"name"`
}

type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Target  string `json:"target,omitempty"`
	} `json:"error"`
}

// Operation is a long-running knowledge base operation.
type Operation struct {
	OperationState      string         `json:"operationState"`
	CreatedTimestamp    string         `json:"createdTimestamp,omitempty"`
	LastActionTimestamp string         `json:"lastActionTimestamp,omitempty"`
	ResourceLocation    string         `json:"resourceLocation,omitempty"`
	UserID              string         `json:"userId,omitempty"`
	OperationID         string         `json:"operationId"`
	ErrorResponse       *ErrorResponse `json:"errorResponse,omitempty"`
}

// KBID returns the knowledge base id from the resource location,
// e.g. "/knowledgebases/{id}".
func (o Operation) KBID() string {
	if o.ResourceLocation == "" {
		return ""
	}
	return path.Base(o.ResourceLocation)
}

// Session runs the sample with one subscription key.
type Session struct {
	client *rest.Client
	info   config.QnAMakerInfo
	env    samples.Env

	kbID string
}

// NewSession returns a new Session.
func NewSession(client *rest.Client, info config.QnAMakerInfo, env samples.Env) *Session {
	return &Session{client: client, info: info, env: env}
}

// KBID returns the id of the knowledge base created by the session.
func (s *Session) KBID() string {
	return s.kbID
}

func (s *Session) kbPath() string {
	return apiPath + "/knowledgebases/" + url.PathEscape(s.kbID)
}

// Create starts creating a knowledge base with one Q&A pair.
func (s *Session) Create(ctx context.Context) (Operation, error) {
	request := CreateKB{
		Name: s.info.KBName,
		QnAList: []QnA{{
			ID: 0,
			Answer: "You can use our REST APIs to manage your Knowledge Base. " +
				"See here for details: https://westus.dev.cognitive.microsoft.com/docs/services/" +
				"58994a073d9e04097c7ba6fe/operations/58994a073d9e041ad42d9baa",
			Source:    "Custom Editorial",
			Questions: []string{"How do I programmatically update my Knowledge Base?"},
			Metadata:  []Metadata{{Name: "category", Value: "api"}},
		}},
		URLs:  []string{},
		Files: []any{},
	}
	var op Operation
	err := s.client.Do(ctx, http.MethodPost, apiPath+"/knowledgebases/create", nil, request, &op)
	if err != nil {
		return op, fmt.Errorf("create knowledge base: %w", err)
	}
	return op, nil
}

// Update adds a Q&A pair, deletes the initial one and renames the
// knowledge base.
func (s *Session) Update(ctx context.Context, name string) (Operation, error) {
	request := UpdateKB{
		Add: &UpdateAdd{
			QnAList: []QnA{{
				ID: 1,
				Answer: "You can change the default message if you use the QnAMakerDialog. " +
					"See this for details: https://docs.botframework.com/en-us/azure-bot-service/" +
					"templates/qnamaker/#navtitle",
				Source:    "Custom Editorial",
				Questions: []string{"How can I change the default message from QnA Maker?"},
				Metadata:  []Metadata{{Name: "category", Value: "api"}},
			}},
			URLs:  []string{},
			Files: []any{},
		},
		Delete: &UpdateDelete{IDs: []int{0}},
		Update: &UpdateName{Name: name},
	}
	var op Operation
	if err := s.client.Do(ctx, http.MethodPatch, s.kbPath(), nil, request, &op); err != nil {
		return op, fmt.Errorf("update knowledge base: %w", err)
	}
	return op, nil
}

// Publish publishes the knowledge base.
func (s *Session) Publish(ctx context.Context) error {
	if err := s.client.Do(ctx, http.MethodPost, s.kbPath(), nil, nil, nil); err != nil {
		return fmt.Errorf("publish knowledge base: %w", err)
	}
	return nil
}

// Delete deletes the knowledge base.
func (s *Session) Delete(ctx context.Context) error {
	if err := s.client.Do(ctx, http.MethodDelete, s.kbPath(), nil, nil, nil); err != nil {
		return fmt.Errorf("delete knowledge base: %w", err)
	}
	return nil
}

// Operation returns the details of an operation.
func (s *Session) Operation(ctx context.Context, id string) (Operation, error) {
	var op Operation
	err := s.client.Get(ctx, apiPath+"/operations/"+url.PathEscape(id), &op)
	return op, err
}

// WaitForOperation waits for an operation to finish and returns its last
// known details.
func (s *Session) WaitForOperation(ctx context.Context, out io.Writer,
	op Operation) (Operation, poll.Status, error) {
	id := op.OperationID
	tracker := job.NewTracker(
		func(ctx context.Context) (Operation, error) { return s.Operation(ctx, id) },
		job.StateOf(func(o Operation) string { return o.OperationState }, Mapping),
	)
	env := s.env.WithObserver(func(status poll.Status, _ int) {
		if !status.IsTerminal() {
			fmt.Fprintf(out, "Operation is not finished. Waiting %s...\n", s.env.Policy.Interval)
		}
	})
	status, err := env.Await(ctx, Service, job.NewHandle(id, tracker.Fetch))
	if result := tracker.Result(); result != nil {
		op = *result
	}
	if err == nil && status.IsTerminal() && status != poll.TimedOut {
		fmt.Fprintf(out, "Operation result: %s\n", op.OperationState)
		if status == poll.Failed && op.ErrorResponse != nil {
			samples.PrintJSON(out, op.ErrorResponse)
		}
	}
	return op, status, err
}

// Run creates, updates and publishes a knowledge base.
func (s *Session) Run(ctx context.Context, out io.Writer) error {
	op, err := s.Create(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Waiting for KB create operation to finish...")
	id := op.OperationID
	op, status, err := s.WaitForOperation(ctx, out, op)
	if err := samples.Report(out, "Operation "+id, status, err); err != nil {
		return err
	}
	if status != poll.Succeeded {
		return nil
	}
	s.kbID = op.KBID()
	fmt.Fprintf(out, "Created KB with ID: %s\n", s.kbID)

	if op, err = s.Update(ctx, "New KB name"); err != nil {
		return err
	}
	fmt.Fprintln(out, "Waiting for KB update operation to finish...")
	id = op.OperationID
	_, status, err = s.WaitForOperation(ctx, out, op)
	if err := samples.Report(out, "Operation "+id, status, err); err != nil {
		return err
	}
	if status != poll.Succeeded {
		if !s.info.DeleteOnFailure {
			return nil
		}
		fmt.Fprintf(out, "Deleting KB %s...\n", s.kbID)
		return s.Delete(ctx)
	}

	if err := s.Publish(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "KB %s published.\n", s.kbID)
	return nil
}
