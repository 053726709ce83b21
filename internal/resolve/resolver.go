// Package resolve matches bib entries to authoritative external records
// via fuzzy multi-provider search.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/provider"
	"github.com/citecheck/citecheck/internal/similarity"
)

// cacheTTL bounds how long provider responses are reused within a run.
const cacheTTL = 15 * time.Minute

// Resolver fans a bib entry's parsed fields out across metadata
// providers and picks the best-scoring candidate.
type Resolver struct {
	providers   []provider.MetadataProvider
	minScore    float64
	weights     similarity.Weights
	trustRank   map[string]int
	timeout     time.Duration
	concurrency int
	log         *decision.Log
	cache       *gocache.Cache
}

// New creates a Resolver. At least one provider must be configured; a
// run without any would be meaningless.
func New(cfg config.ResolverConfig, providers []provider.MetadataProvider, log *decision.Log) (*Resolver, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no metadata providers configured")
	}

	trustRank := make(map[string]int)
	for i, name := range cfg.TrustOrder {
		trustRank[name] = i
	}

	return &Resolver{
		providers:   providers,
		minScore:    cfg.MinScore,
		weights:     similarity.Weights{Title: cfg.TitleWeight, Authors: cfg.AuthorWeight},
		trustRank:   trustRank,
		timeout:     cfg.ProviderTimeout,
		concurrency: cfg.Concurrency,
		log:         log,
		cache:       gocache.New(cacheTTL, 2*cacheTTL),
	}, nil
}

// Scored is a candidate with its combined similarity against the entry.
type Scored struct {
	provider.Candidate
	Score float64 `json:"score"`
}

// Outcome records how one entry resolved.
type Outcome struct {
	EntryID              string                   `json:"entry_id"`
	Record               *document.ResolvedRecord `json:"record,omitempty"`
	Candidates           []Scored                 `json:"candidates,omitempty"` // Survivors, ranked
	UnavailableProviders []string                 `json:"unavailable_providers,omitempty"`
}

// Resolve queries all providers concurrently for one entry and returns
// the top candidate as a ResolvedRecord with status unknown, or a nil
// record when nothing scores above the minimum. "No record found" is an
// expected outcome (a possible fabrication signal), not an error.
//
// The entry's Resolved field is replaced in place; when a previous
// record is superseded, that supersession is itself logged so the old
// record's evidence survives in the audit trail.
func (r *Resolver) Resolve(ctx context.Context, docID string, entry *document.BibEntry) (*Outcome, error) {
	q := provider.Query{Title: entry.Title, Authors: entry.Authors, Year: entry.Year}
	out := &Outcome{EntryID: entry.ID}

	for _, pr := range r.fanOut(ctx, q) {
		if pr.err != nil {
			out.UnavailableProviders = append(out.UnavailableProviders, pr.name)
			err := r.log.Append(decision.Record{
				Stage:      decision.StageResolve,
				DocumentID: docID,
				ItemID:     entry.ID,
				Outcome:    decision.OutcomeProviderUnavailable,
				Rationale:  fmt.Sprintf("%s: %v", pr.name, pr.err),
			})
			if err != nil {
				return nil, err
			}
			continue
		}
		for _, cand := range pr.candidates {
			score := similarity.Combined(r.weights,
				entry.Title, entry.Authors, entry.Year,
				cand.Title, cand.Authors, cand.Year)
			if score < r.minScore {
				continue
			}
			out.Candidates = append(out.Candidates, Scored{Candidate: cand, Score: score})
		}
	}

	if entry.SourceDOI != "" {
		for _, cand := range r.lookupSourceDOI(ctx, entry.SourceDOI) {
			score := similarity.Combined(r.weights,
				entry.Title, entry.Authors, entry.Year,
				cand.Title, cand.Authors, cand.Year)
			if score < r.minScore {
				continue
			}
			out.Candidates = append(out.Candidates, Scored{Candidate: cand, Score: score})
		}
	}

	r.rank(out.Candidates)
	out.Candidates = dedupe(out.Candidates)

	if len(out.Candidates) == 0 {
		err := r.log.Append(decision.Record{
			Stage:      decision.StageResolve,
			DocumentID: docID,
			ItemID:     entry.ID,
			Outcome:    decision.OutcomeUnresolved,
			Rationale:  "no provider candidate above minimum combined score",
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	best := out.Candidates[0]
	if prev := entry.Resolved; prev != nil && prev.Identifier != best.Identifier {
		err := r.log.Append(decision.Record{
			Stage:      decision.StageResolve,
			DocumentID: docID,
			ItemID:     entry.ID,
			Outcome:    decision.OutcomeSuperseded,
			Confidence: prev.Confidence,
			Rationale:  fmt.Sprintf("record %s (%s) replaced by re-resolution", prev.Identifier, prev.Provider),
		})
		if err != nil {
			return nil, err
		}
	}

	out.Record = &document.ResolvedRecord{
		Identifier:    best.Identifier,
		Provider:      best.Provider,
		Confidence:    best.Score,
		Status:        document.StatusUnknown,
		OpenAccessURL: best.OpenAccessURL,
	}
	entry.Resolved = out.Record

	err := r.log.Append(decision.Record{
		Stage:      decision.StageResolve,
		DocumentID: docID,
		ItemID:     entry.ID,
		Outcome:    decision.OutcomeResolved,
		Confidence: best.Score,
		Rationale:  fmt.Sprintf("%s via %s", best.Identifier, best.Provider),
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveAll resolves every entry in the document, in parallel with
// bounded concurrency. A provider failing for one entry never aborts the
// others; outcomes come back in entry order.
func (r *Resolver) ResolveAll(ctx context.Context, doc *document.Document) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(doc.Entries))
	errs := make([]error, len(doc.Entries))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)
	for i := range doc.Entries {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[idx], errs[idx] = r.Resolve(ctx, doc.ID, &doc.Entries[idx])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// providerResult is one provider's answer (or failure) for a query.
type providerResult struct {
	name       string
	candidates []provider.Candidate
	err        error
}

// fanOut queries all providers concurrently, each with its own timeout.
// A slow or failing provider only costs its own slot; the rest of the
// results are still used.
func (r *Resolver) fanOut(ctx context.Context, q provider.Query) []providerResult {
	results := make([]providerResult, len(r.providers))
	var wg sync.WaitGroup

	for i, p := range r.providers {
		wg.Add(1)
		go func(idx int, p provider.MetadataProvider) {
			defer wg.Done()
			results[idx] = r.queryOne(ctx, p, q)
		}(i, p)
	}
	wg.Wait()
	return results
}

// queryOne performs a single provider query through the response cache.
func (r *Resolver) queryOne(ctx context.Context, p provider.MetadataProvider, q provider.Query) providerResult {
	key := cacheKey(p.Name(), q)
	if cached, ok := r.cache.Get(key); ok {
		return providerResult{name: p.Name(), candidates: cached.([]provider.Candidate)}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	candidates, err := p.QueryByMetadata(callCtx, q)
	if err != nil {
		return providerResult{name: p.Name(), err: err}
	}
	r.cache.Set(key, candidates, gocache.DefaultExpiration)
	return providerResult{name: p.Name(), candidates: candidates}
}

// lookupSourceDOI cross-checks a DOI the extractor found embedded in the
// bibliography itself, via every provider that supports direct lookup.
// The fetched record goes through the same scoring as search candidates:
// an embedded DOI is a hint, not ground truth, and a mismatched one is
// discarded like any other poor candidate. Lookup failure only costs the
// hint; metadata search still runs.
func (r *Resolver) lookupSourceDOI(ctx context.Context, doi string) []provider.Candidate {
	var cands []provider.Candidate
	for _, p := range r.providers {
		lk, ok := p.(provider.DOILookuper)
		if !ok {
			continue
		}

		key := lk.Name() + "|doi|" + doi
		if cached, ok := r.cache.Get(key); ok {
			cands = append(cands, cached.(provider.Candidate))
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		cand, err := lk.LookupByDOI(callCtx, doi)
		cancel()
		if err != nil {
			continue
		}
		r.cache.Set(key, *cand, gocache.DefaultExpiration)
		cands = append(cands, *cand)
	}
	return cands
}

// dedupe keeps the best-ranked candidate per identifier; a source-DOI
// lookup and a metadata search can return the same record. Candidates
// must already be ranked.
func dedupe(cands []Scored) []Scored {
	seen := make(map[string]bool, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if seen[c.Identifier] {
			continue
		}
		seen[c.Identifier] = true
		out = append(out, c)
	}
	return out
}

// rank orders candidates by combined score descending; ties go to the
// provider configured as higher-trust.
func (r *Resolver) rank(cands []Scored) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return r.trust(cands[i].Provider) < r.trust(cands[j].Provider)
	})
}

func (r *Resolver) trust(name string) int {
	if rank, ok := r.trustRank[name]; ok {
		return rank
	}
	return len(r.trustRank) // Unlisted providers rank last
}

func cacheKey(name string, q provider.Query) string {
	return fmt.Sprintf("%s|%s|%s|%d", name, q.Title, strings.Join(q.Authors, ","), q.Year)
}
