// Package crossref provides a client for the Crossref works API.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/citecheck/citecheck/internal/provider"
)

const (
	// BaseURL is the Crossref REST API base URL.
	BaseURL = "https://api.crossref.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit keeps us inside Crossref's polite-pool expectations.
	RateLimit = 5.0

	// DefaultRows is how many candidates a metadata query requests.
	DefaultRows = 5
)

// Name is the provider tag used in resolved records and trust ordering.
const Name = "crossref"

// Client is a rate-limited HTTP client for the Crossref API. Supplying a
// mailto address routes requests through Crossref's polite pool.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	rows       int
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

// WithMailto sets the contact address sent with every request.
func WithMailto(email string) ClientOption {
	return func(c *Client) {
		c.mailto = email
	}
}

// WithRows sets how many candidates a query requests.
func WithRows(n int) ClientOption {
	return func(c *Client) {
		c.rows = n
	}
}

// NewClient creates a Crossref client. CITECHECK_MAILTO in the
// environment supplies the contact address unless WithMailto overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		rows:       DefaultRows,
	}

	if email := os.Getenv("CITECHECK_MAILTO"); email != "" {
		c.mailto = email
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.MetadataProvider.
func (c *Client) Name() string { return Name }

// crossrefWork mirrors the fields we consume from a works item.
type crossrefWork struct {
	DOI    string   `json:"DOI"`
	Title  []string `json:"title"`
	Author []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	Issued struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"issued"`
	Score float64 `json:"score"`
}

// QueryByMetadata searches works by title/author with a publication-year
// filter, returning candidates in Crossref relevance order.
func (c *Client) QueryByMetadata(ctx context.Context, q provider.Query) ([]provider.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	if q.Title != "" {
		params.Set("query.title", q.Title)
	}
	if len(q.Authors) > 0 {
		params.Set("query.author", strings.Join(q.Authors, " "))
	}
	if q.Year > 0 {
		// Widen by one year each way; the scorer applies the exact gate
		params.Set("filter", fmt.Sprintf("from-pub-date:%d,until-pub-date:%d", q.Year-1, q.Year+1))
	}
	params.Set("rows", strconv.Itoa(c.rows))
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	var body struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/works?"+params.Encode(), &body); err != nil {
		return nil, err
	}

	candidates := make([]provider.Candidate, 0, len(body.Message.Items))
	for _, item := range body.Message.Items {
		candidates = append(candidates, item.toCandidate())
	}
	return candidates, nil
}

// LookupByDOI fetches the record for a specific DOI.
func (c *Client) LookupByDOI(ctx context.Context, doi string) (*provider.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var body struct {
		Message crossrefWork `json:"message"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/works/"+url.PathEscape(doi), &body); err != nil {
		return nil, err
	}
	cand := body.Message.toCandidate()
	if cand.Identifier == "" {
		return nil, provider.ErrNotFound
	}
	return &cand, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", provider.ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := provider.CheckHTTPErrors(Name, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing crossref response: %v", provider.ErrInvalidResponse, err)
	}
	return nil
}

func (w crossrefWork) toCandidate() provider.Candidate {
	cand := provider.Candidate{
		Identifier: strings.ToLower(w.DOI),
		Signal:     w.Score,
		Provider:   Name,
	}
	if len(w.Title) > 0 {
		cand.Title = w.Title[0]
	}
	for _, a := range w.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			cand.Authors = append(cand.Authors, name)
		}
	}
	if len(w.Issued.DateParts) > 0 && len(w.Issued.DateParts[0]) > 0 {
		cand.Year = w.Issued.DateParts[0][0]
	}
	return cand
}
