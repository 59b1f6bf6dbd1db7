// Package rest sends throttled JSON requests to Cognitive Services REST
// endpoints and classifies failures for the poller.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Secret headers, masked by FormatRequest.
const (
	// SubscriptionKeyHeader carries the Cognitive Services subscription key.
	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	// TrainingKeyHeader carries the Custom Vision training key.
	TrainingKeyHeader = "Training-Key"
)

// HTTPHandler sends an HTTP request and returns an HTTP response,
// following policy (such as redirects, cookies, auth) as configured
// on the implementing HTTP client.
type HTTPHandler interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode,
		http.StatusText(e.StatusCode), e.Body)
}

// Retryable reports whether the status code indicates a temporary failure.
func (e *StatusError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// Options represents optional parameters for constructing a Client.
type Options struct {
	HTTPClient HTTPHandler
	// Header is added to every request, e.g. the subscription key.
	Header http.Header
	// Throttle is the minimum time between two requests. Zero disables
	// throttling.
	Throttle time.Duration
	Logger   logger.Logger
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL    *url.URL
	httpClient HTTPHandler
	header     http.Header
	limiter    *rate.Limiter
	logger     logger.Logger
}

// NewClient returns a new Client for the given endpoint.
func NewClient(endpoint string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(endpoint, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("endpoint %q must be an absolute URL", endpoint)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Throttle > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Throttle), 1)
	}
	return &Client{
		baseURL:    base,
		httpClient: opts.HTTPClient,
		header:     opts.Header.Clone(),
		limiter:    limiter,
		logger:     opts.Logger,
	}, nil
}

// URL resolves a path relative to the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL.JoinPath(strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends a request with an optional JSON body and decodes a JSON response
// into out when out is not nil.
//
// Transport errors and 408, 429 and 5xx responses are marked with
// poll.Transient; other failures are marked with poll.Fatal.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values,
	body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return poll.Transient(err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return poll.Fatal(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), reader)
	if err != nil {
		return poll.Fatal(err)
	}
	for name, values := range c.header {
		for _, v := range values {
			request.Header.Add(name, v)
		}
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")

	c.logger.Trace("Sending request.", "request", FormatRequest(request))
	response, err := c.httpClient.Do(request)
	if err != nil {
		return poll.Transient(err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return poll.Transient(fmt.Errorf("read response: %w", err))
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		statusErr := &StatusError{
			Method:     method,
			URL:        request.URL.Redacted(),
			StatusCode: response.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
		if statusErr.Retryable() {
			return poll.Transient(statusErr)
		}
		return poll.Fatal(statusErr)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return poll.Fatal(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Get sends a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, nil, out)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// FormatRequest renders the request line and headers for debug logging.
// The key and authorization headers are masked.
func FormatRequest(r *http.Request) string {
	var request []string
	request = append(request, fmt.Sprintf("%v %v %v", r.Method, r.URL, r.Proto))
	for name, headers := range r.Header {
		for _, h := range headers {
			switch name {
			case SubscriptionKeyHeader, TrainingKeyHeader, "Authorization":
				h = "***"
			}
			request = append(request, fmt.Sprintf("%v: %v", name, h))
		}
	}
	if r.ContentLength > 0 {
		request = append(request, fmt.Sprintf("Content Length: %d", r.ContentLength))
	}
	return strings.Join(request, "\n")
}
