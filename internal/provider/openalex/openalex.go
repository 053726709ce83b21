// Package openalex provides a client for the OpenAlex works API.
package openalex

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
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit stays under OpenAlex's 10 req/s courtesy limit.
	RateLimit = 10.0

	// DefaultPerPage is how many candidates a metadata query requests.
	DefaultPerPage = 5
)

// Name is the provider tag used in resolved records and trust ordering.
const Name = "openalex"

// Client is a rate-limited HTTP client for the OpenAlex API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	perPage    int
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

// NewClient creates an OpenAlex client. CITECHECK_MAILTO in the
// environment supplies the contact address unless WithMailto overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		perPage:    DefaultPerPage,
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

// openalexWork mirrors the fields we consume from a works item.
type openalexWork struct {
	DOI         string `json:"doi"` // Full URL form: https://doi.org/10.x/y
	Title       string `json:"title"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PublicationYear int     `json:"publication_year"`
	RelevanceScore  float64 `json:"relevance_score"`
	OpenAccess      struct {
		IsOA  bool   `json:"is_oa"`
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
	BestOALocation *struct {
		PDFURL string `json:"pdf_url"`
		URL    string `json:"landing_page_url"`
	} `json:"best_oa_location"`
}

// QueryByMetadata searches works by title with a publication-year filter.
func (c *Client) QueryByMetadata(ctx context.Context, q provider.Query) ([]provider.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	search := q.Title
	if search == "" {
		search = strings.Join(q.Authors, " ")
	}
	params.Set("search", search)
	if q.Year > 0 {
		params.Set("filter", fmt.Sprintf("publication_year:%d-%d", q.Year-1, q.Year+1))
	}
	params.Set("per-page", strconv.Itoa(c.perPage))
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	var body struct {
		Results []openalexWork `json:"results"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/works?"+params.Encode(), &body); err != nil {
		return nil, err
	}

	candidates := make([]provider.Candidate, 0, len(body.Results))
	for _, w := range body.Results {
		cand := w.toCandidate()
		if cand.Identifier == "" {
			continue // Works without a DOI can't be verified downstream
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// OpenAccessLink implements provider.OpenAccessChecker: it looks up a DOI
// and returns the best open-access URL, or "" when the work exists but
// has none.
func (c *Client) OpenAccessLink(ctx context.Context, doi string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + "/works/doi:" + url.PathEscape(doi)
	if c.mailto != "" {
		u += "?mailto=" + url.QueryEscape(c.mailto)
	}

	var w openalexWork
	if err := c.getJSON(ctx, u, &w); err != nil {
		return "", err
	}

	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		return w.BestOALocation.PDFURL, nil
	}
	if w.OpenAccess.IsOA && w.OpenAccess.OAURL != "" {
		return w.OpenAccess.OAURL, nil
	}
	return "", nil
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
		return fmt.Errorf("%w: parsing openalex response: %v", provider.ErrInvalidResponse, err)
	}
	return nil
}

func (w openalexWork) toCandidate() provider.Candidate {
	cand := provider.Candidate{
		Identifier: strings.ToLower(strings.TrimPrefix(w.DOI, "https://doi.org/")),
		Title:      w.Title,
		Year:       w.PublicationYear,
		Signal:     w.RelevanceScore,
		Provider:   Name,
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			cand.Authors = append(cand.Authors, a.Author.DisplayName)
		}
	}
	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		cand.OpenAccessURL = w.BestOALocation.PDFURL
	} else if w.OpenAccess.IsOA {
		cand.OpenAccessURL = w.OpenAccess.OAURL
	}
	return cand
}
