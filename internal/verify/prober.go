package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DOIResolverURL is the public DOI resolver used for existence probes.
const DOIResolverURL = "https://doi.org"

// ProbeResult classifies one existence probe.
type ProbeResult int

const (
	// ProbeExists: the identifier dereferenced.
	ProbeExists ProbeResult = iota
	// ProbeGone: the resolver affirmatively reported no such record.
	ProbeGone
	// ProbeInconclusive: the probe neither confirmed nor denied
	// (server error, rate limit, odd status). Distinct from gone:
	// "we couldn't check" must never be recorded as "it doesn't exist".
	ProbeInconclusive
)

// Prober performs a lightweight existence check on a record identifier.
type Prober interface {
	Probe(ctx context.Context, identifier string) (ProbeResult, error)
}

// DOIProber probes identifiers with a HEAD request against the DOI
// resolver, following redirects.
type DOIProber struct {
	httpClient *http.Client
	baseURL    string
}

// NewDOIProber creates a prober with the given per-request timeout.
// baseURL overrides the public resolver (for testing); empty means the
// real one.
func NewDOIProber(timeout time.Duration, baseURL string) *DOIProber {
	if baseURL == "" {
		baseURL = DOIResolverURL
	}
	return &DOIProber{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Probe implements Prober. Network-level failures return a non-nil error
// and ProbeInconclusive so the caller can retry.
func (p *DOIProber) Probe(ctx context.Context, identifier string) (ProbeResult, error) {
	u := p.baseURL + "/" + url.PathEscape(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return ProbeInconclusive, fmt.Errorf("creating probe request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return ProbeInconclusive, fmt.Errorf("probing %s: %w", identifier, err)
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return ProbeExists, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ProbeGone, nil
	default:
		return ProbeInconclusive, nil
	}
}
