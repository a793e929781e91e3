// Package banking reads parsed bank statements from the statement parsing
// service.
package banking

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/reconcile-cli/internal/resilience"
)

// Client fetches parsed bank statements for a loan application.
type Client interface {
	// Statements returns every parsed statement for the application.
	// An unknown application yields no statements and no error.
	Statements(ctx context.Context, applicationID string) ([]Statement, error)
}

// Statement is one parsed bank statement.
type Statement struct {
	ID       string     `json:"id"`
	ParsedAt *time.Time `json:"parsedAt,omitempty"`
	Fields   []Field    `json:"fields"`
}

// Field is one header field read from a statement. Value is a string or a
// json.Number.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type statementsResponse struct {
	Statements []Statement `json:"statements"`
}

// StatusError is returned for non-2xx responses other than 404. Statuses
// worth retrying are wrapped in a resilience.TransientError.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "banking: unexpected status " + http.StatusText(e.StatusCode)
	}
	return "banking: unexpected status " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = key
	}
}

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Statements(ctx context.Context, applicationID string) ([]Statement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "banking: rate limit")
	}

	reqURL := c.baseURL + "/v1/applications/" + url.PathEscape(applicationID) + "/statements"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "banking: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "banking: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, eris.Wrap(err, "banking: read body")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []Statement{}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out statementsResponse
	if err := dec.Decode(&out); err != nil {
		return nil, eris.Wrap(err, "banking: parse response")
	}
	if out.Statements == nil {
		out.Statements = []Statement{}
	}
	return out.Statements, nil
}
