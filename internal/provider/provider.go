// Package provider defines the contract for external metadata sources.
// Each provider answers bibliographic queries with candidate records; the
// resolver fans out across them and tolerates partial non-response.
package provider

import "context"

// Query carries the parsed bibliographic fields used for lookup. Any
// field may be empty.
type Query struct {
	Title   string
	Authors []string
	Year    int
}

// Candidate is one record a provider offered for a query.
type Candidate struct {
	Identifier    string   `json:"identifier"` // DOI
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Year          int      `json:"year,omitempty"`
	OpenAccessURL string   `json:"open_access_url,omitempty"`
	Signal        float64  `json:"signal,omitempty"` // Provider-native relevance, unnormalized
	Provider      string   `json:"provider"`
}

// MetadataProvider is the shared lookup contract. Implementations are
// safe for concurrent use.
type MetadataProvider interface {
	Name() string
	QueryByMetadata(ctx context.Context, q Query) ([]Candidate, error)
}

// DOILookuper fetches the record behind a known DOI. Providers with a
// direct-lookup endpoint implement it alongside MetadataProvider; the
// resolver uses it to cross-check DOIs embedded in the bibliography.
type DOILookuper interface {
	Name() string
	LookupByDOI(ctx context.Context, doi string) (*Candidate, error)
}

// OpenAccessChecker reports an open-access link for an identifier, when
// the provider can. An empty URL with nil error means "exists, no OA
// link known".
type OpenAccessChecker interface {
	Name() string
	OpenAccessLink(ctx context.Context, doi string) (string, error)
}
