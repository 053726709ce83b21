// Package unpaywall provides a client for the Unpaywall open-access API.
// Unpaywall answers only by DOI, so it participates in verification (as
// an OpenAccessChecker) rather than in metadata resolution.
package unpaywall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/citecheck/citecheck/internal/provider"
)

const (
	// BaseURL is the Unpaywall API base URL.
	BaseURL = "https://api.unpaywall.org/v2"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit keeps well under Unpaywall's 100k/day allowance.
	RateLimit = 5.0
)

// Name is the provider tag.
const Name = "unpaywall"

// Client is a rate-limited HTTP client for the Unpaywall API. Unpaywall
// requires an email on every request.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	email      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithEmail sets the contact address Unpaywall requires.
func WithEmail(email string) ClientOption {
	return func(c *Client) {
		c.email = email
	}
}

// NewClient creates an Unpaywall client. CITECHECK_MAILTO in the
// environment supplies the email unless WithEmail overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}

	if email := os.Getenv("CITECHECK_MAILTO"); email != "" {
		c.email = email
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.OpenAccessChecker.
func (c *Client) Name() string { return Name }

// OpenAccessLink returns the best open-access URL for a DOI, preferring
// a direct PDF link, or "" when the record exists but has no OA copy.
func (c *Client) OpenAccessLink(ctx context.Context, doi string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	u := fmt.Sprintf("%s/%s?email=%s", c.baseURL, url.PathEscape(doi), url.QueryEscape(c.email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := provider.CheckHTTPErrors(Name, resp); err != nil {
		return "", err
	}

	var body struct {
		BestOALocation *struct {
			URLForPDF string `json:"url_for_pdf"`
			URL       string `json:"url"`
		} `json:"best_oa_location"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: parsing unpaywall response: %v", provider.ErrInvalidResponse, err)
	}

	if body.BestOALocation == nil {
		return "", nil
	}
	if body.BestOALocation.URLForPDF != "" {
		return body.BestOALocation.URLForPDF, nil
	}
	return body.BestOALocation.URL, nil
}
