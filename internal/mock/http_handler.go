package mock

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/rest"
)

// HTTPHandlerMock implements rest.HTTPHandler with a function.
type HTTPHandlerMock struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

// Do calls DoFunc.
func (m HTTPHandlerMock) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

var (
	HTTPHandlerOk  rest.HTTPHandler
	HTTPHandlerErr rest.HTTPHandler
)

func init() {
	HTTPHandlerOk = HTTPHandlerMock{DoFunc: func(request *http.Request) (*http.Response, error) {
		return NewResponse(request, http.StatusOK, "{}"), nil
	}}
	HTTPHandlerErr = HTTPHandlerMock{DoFunc: func(request *http.Request) (*http.Response, error) {
		return NewResponse(request, http.StatusInternalServerError, ""), nil
	}}
}

// NewResponse returns a response with the given status code and body.
func NewResponse(request *http.Request, code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    request,
	}
}

// Reply is a canned response of a Sequence.
type Reply struct {
	Code int
	Body string
	Err  error
}

// Sequence replays canned replies in order, repeating the last one, and
// records every request it receives.
type Sequence struct {
	mtx      sync.Mutex
	replies  []Reply
	requests []*http.Request
	bodies   []string
}

var _ rest.HTTPHandler = (*Sequence)(nil)

// NewSequence returns a new Sequence.
func NewSequence(replies ...Reply) *Sequence {
	return &Sequence{replies: replies}
}

// Do implements rest.HTTPHandler.
func (s *Sequence) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.requests = append(s.requests, req)
	s.bodies = append(s.bodies, body)

	i := len(s.requests) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	reply := s.replies[i]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return NewResponse(req, reply.Code, reply.Body), nil
}

// Requests returns the received requests.
func (s *Sequence) Requests() []*http.Request {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// Bodies returns the received request bodies.
func (s *Sequence) Bodies() []string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]string(nil), s.bodies...)
}
