// Package pipeline orchestrates the citation checking stages over
// documents: match, resolve, verify, retrieve, align. Each stage records
// its decisions; no stage holds a lock across another, so a slow record
// in one stage never blocks unrelated work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/citecheck/citecheck/internal/align"
	"github.com/citecheck/citecheck/internal/citation"
	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/report"
	"github.com/citecheck/citecheck/internal/resolve"
	"github.com/citecheck/citecheck/internal/retrieve"
	"github.com/citecheck/citecheck/internal/verify"
)

// Pipeline wires the stages together for a workspace.
type Pipeline struct {
	root      string
	matcher   *citation.Matcher
	resolver  *resolve.Resolver
	verifier  *verify.Verifier
	retriever retrieve.Retriever // nil disables retrieval and alignment pairing text
	aligner   *align.Aligner
	log       *decision.Log
}

// Options selects which stages run beyond matching.
type Options struct {
	Resolve  bool
	Verify   bool
	Retrieve bool
	Align    bool
}

// New builds a pipeline from workspace config and stage implementations.
func New(root string, cfg *config.Pipeline, resolver *resolve.Resolver, verifier *verify.Verifier, retriever retrieve.Retriever, log *decision.Log) *Pipeline {
	return &Pipeline{
		root:      root,
		matcher:   &citation.Matcher{Threshold: cfg.Matcher.FuzzyThreshold, Log: log},
		resolver:  resolver,
		verifier:  verifier,
		retriever: retriever,
		aligner:   &align.Aligner{Log: log},
		log:       log,
	}
}

// DocumentResult is everything one document produced.
type DocumentResult struct {
	DocumentID string                `json:"document_id"`
	Match      *citation.Result      `json:"match"`
	Resolution []*resolve.Outcome    `json:"resolution,omitempty"`
	Pairs      []document.CitingPair `json:"pairs,omitempty"`
	Coverage   *align.Coverage       `json:"coverage,omitempty"`
	Entries    []document.BibEntry   `json:"entries"`
}

// Run processes one TEI file through the selected stages and writes the
// document's artifacts. Item-level failures are data outcomes recorded
// in the artifacts and decision log; only malformed input or a broken
// workspace aborts.
func (p *Pipeline) Run(ctx context.Context, teiPath string, opts Options) (*DocumentResult, error) {
	doc, err := document.LoadTEI(teiPath)
	if err != nil {
		return nil, err
	}

	outDir := config.DocumentDir(p.root, doc.ID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outDir, err)
	}

	res := &DocumentResult{DocumentID: doc.ID}

	res.Match, err = p.matcher.Match(doc)
	if err != nil {
		return nil, err
	}
	if err := report.WriteMatch(outDir, res.Match); err != nil {
		return nil, err
	}

	if opts.Resolve {
		res.Resolution, err = p.resolver.ResolveAll(ctx, doc)
		if err != nil {
			return nil, err
		}
	}

	if opts.Verify {
		if err := p.verifier.VerifyAll(ctx, doc); err != nil {
			return nil, err
		}
	}

	var retrieved map[string]string
	if opts.Retrieve {
		retrieved, err = p.retrieveAll(ctx, doc, outDir)
		if err != nil {
			return nil, err
		}
	}

	if opts.Resolve {
		if err := report.WriteResolution(outDir, doc, res.Resolution); err != nil {
			return nil, err
		}
	}

	if opts.Align {
		res.Pairs, err = p.aligner.Pairs(doc, retrieved)
		if err != nil {
			return nil, err
		}
		cov := align.CoverageOf(res.Pairs)
		res.Coverage = &cov
		if err := report.WritePairs(outDir, res.Pairs); err != nil {
			return nil, err
		}
	}

	res.Entries = doc.Entries
	return res, nil
}

// RunAll processes documents in parallel. Each document is independent;
// one document's failure is reported alongside the others' results.
func (p *Pipeline) RunAll(ctx context.Context, teiPaths []string, opts Options, concurrency int) ([]*DocumentResult, []error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]*DocumentResult, len(teiPaths))
	errs := make([]error, len(teiPaths))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	for i, path := range teiPaths {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx], errs[idx] = p.Run(ctx, path, opts)
		}(i, path)
	}
	wg.Wait()
	return results, errs
}

// retrieveAll fetches content for each verified, accessible record and
// logs the outcome per entry. Failures are not_retrievable outcomes, not
// errors.
func (p *Pipeline) retrieveAll(ctx context.Context, doc *document.Document, outDir string) (map[string]string, error) {
	retrieved := make(map[string]string)
	if p.retriever == nil {
		return retrieved, nil
	}

	for i := range doc.Entries {
		entry := &doc.Entries[i]
		rec := entry.Resolved
		if rec == nil || rec.Status != document.StatusVerified {
			continue
		}

		text, err := p.retriever.Retrieve(ctx, rec, outDir)
		outcome := decision.OutcomeRetrieved
		rationale := fmt.Sprintf("%d bytes of structured text", len(text))
		if err != nil {
			if !errors.Is(err, retrieve.ErrNotRetrievable) {
				return nil, err
			}
			outcome = decision.OutcomeNotRetrievable
			rationale = err.Error()
		} else {
			retrieved[entry.ID] = text
		}

		logErr := p.log.Append(decision.Record{
			Stage:      decision.StageRetrieve,
			DocumentID: doc.ID,
			ItemID:     rec.Identifier,
			Outcome:    outcome,
			Rationale:  rationale,
		})
		if logErr != nil {
			return nil, logErr
		}
	}
	return retrieved, nil
}
