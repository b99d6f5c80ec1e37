// Package nppes queries the CMS NPPES NPI Registry.
package nppes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/provider-cli/internal/resilience"
)

// DefaultBaseURL is the public registry endpoint.
const DefaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"

// Client defines the registry operations used by the validator.
type Client interface {
	// Lookup fetches one provider by its 10-digit number. It returns
	// (nil, nil) when the registry has no match.
	Lookup(ctx context.Context, number string) (*Provider, error)
}

// Provider is the registry's view of one NPI.
type Provider struct {
	Number          string          `json:"number"`
	EnumerationType string          `json:"enumeration_type,omitempty"`
	FirstName       string          `json:"first_name,omitempty"`
	LastName        string          `json:"last_name,omitempty"`
	Credential      string          `json:"credential,omitempty"`
	Status          string          `json:"status,omitempty"`
	Taxonomies      []Taxonomy      `json:"taxonomies,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// Name returns "first last", trimmed.
func (p *Provider) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Taxonomy is one taxonomy entry on a registry record.
type Taxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
	State   string `json:"state"`
	License string `json:"license"`
}

// StatusError is returned for non-200 registry responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nppes: unexpected status %d", e.StatusCode)
}

type apiResponse struct {
	ResultCount int               `json:"result_count"`
	Results     []json.RawMessage `json:"results"`
	Errors      []apiError        `json:"Errors"`
}

type apiError struct {
	Description string `json:"description"`
	Field       string `json:"field"`
}

type apiResult struct {
	Number          string     `json:"number"`
	EnumerationType string     `json:"enumeration_type"`
	Basic           apiBasic   `json:"basic"`
	Taxonomies      []Taxonomy `json:"taxonomies"`
}

type apiBasic struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Credential string `json:"credential"`
	Status     string `json:"status"`
}

// Option configures the registry client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithVersion overrides the API version query parameter.
func WithVersion(v string) Option {
	return func(c *httpClient) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit throttles lookups to rps requests per second. A
// non-positive value disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL string
	version string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a registry client with a 10 second timeout.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		version: "2.1",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, number string) (*Provider, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "nppes: rate limit")
		}
	}

	q := url.Values{}
	q.Set("number", number)
	q.Set("version", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nppes: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nppes: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(resilience.NewTransientError(err, resp.StatusCode), "nppes: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		serr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(serr, resp.StatusCode)
		}
		return nil, serr
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "nppes: decode response")
	}
	if len(parsed.Errors) > 0 {
		return nil, eris.Errorf("nppes: %s", parsed.Errors[0].Description)
	}
	if parsed.ResultCount == 0 || len(parsed.Results) == 0 {
		return nil, nil
	}

	var first apiResult
	if err := json.Unmarshal(parsed.Results[0], &first); err != nil {
		return nil, eris.Wrap(err, "nppes: decode result")
	}

	return &Provider{
		Number:          first.Number,
		EnumerationType: first.EnumerationType,
		FirstName:       first.Basic.FirstName,
		LastName:        first.Basic.LastName,
		Credential:      first.Basic.Credential,
		Status:          first.Basic.Status,
		Taxonomies:      first.Taxonomies,
		Raw:             parsed.Results[0],
	}, nil
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode
	}
	return 0
}
