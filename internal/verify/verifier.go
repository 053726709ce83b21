// Package verify confirms that resolved records still dereference to
// live, retrievable artifacts.
package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/provider"
)

// Verifier runs existence probes and open-access checks over resolved
// records. Probes for different records are independent; retries for one
// never block another.
type Verifier struct {
	prober      Prober
	checkers    []provider.OpenAccessChecker
	attempts    int
	backoff     time.Duration
	concurrency int
	log         *decision.Log

	// sleep is a seam for tests; defaults to time.Sleep.
	sleep func(time.Duration)
}

// New creates a Verifier. Checkers are consulted in order until one
// reports an open-access link.
func New(cfg config.VerifierConfig, prober Prober, checkers []provider.OpenAccessChecker, log *decision.Log) *Verifier {
	return &Verifier{
		prober:      prober,
		checkers:    checkers,
		attempts:    cfg.Attempts,
		backoff:     cfg.Backoff,
		concurrency: cfg.Concurrency,
		log:         log,
		sleep:       time.Sleep,
	}
}

// Verify probes one entry's resolved record and advances its status:
// verified (dereferences and has an open-access copy), unavailable
// (exists but not retrievable, or the check stayed inconclusive), or
// gone (the identifier no longer resolves). Entries without a resolved
// record are skipped. Verification is idempotent: re-running against
// unchanged remote state reaches the same status.
func (v *Verifier) Verify(ctx context.Context, docID string, entry *document.BibEntry) error {
	rec := entry.Resolved
	if rec == nil {
		return nil
	}

	result, probeErr := v.probeWithRetry(ctx, rec.Identifier)

	switch result {
	case ProbeGone:
		return v.conclude(docID, entry, document.StatusGone, decision.OutcomeGone,
			"identifier no longer resolves")

	case ProbeInconclusive:
		rationale := fmt.Sprintf("existence check inconclusive after %d attempts", v.attempts)
		if probeErr != nil {
			rationale = fmt.Sprintf("%s: %v", rationale, probeErr)
		}
		return v.conclude(docID, entry, document.StatusUnavailable, decision.OutcomeProbeFailed, rationale)
	}

	// Record exists; accessibility decides verified vs unavailable.
	oaURL, checked := v.openAccessLink(ctx, rec.Identifier)
	if oaURL != "" {
		rec.OpenAccessURL = oaURL
		return v.conclude(docID, entry, document.StatusVerified, decision.OutcomeVerified,
			fmt.Sprintf("open-access copy at %s", oaURL))
	}

	rationale := "exists but no open-access link"
	if len(checked) > 0 {
		rationale = fmt.Sprintf("%s (checked %s)", rationale, strings.Join(checked, ", "))
	}
	return v.conclude(docID, entry, document.StatusUnavailable, decision.OutcomeUnavailable, rationale)
}

// VerifyAll verifies every resolved entry in parallel with bounded
// concurrency.
func (v *Verifier) VerifyAll(ctx context.Context, doc *document.Document) error {
	errs := make([]error, len(doc.Entries))
	var wg sync.WaitGroup
	sem := make(chan struct{}, v.concurrency)

	for i := range doc.Entries {
		if doc.Entries[i].Resolved == nil {
			continue
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[idx] = v.Verify(ctx, doc.ID, &doc.Entries[idx])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// probeWithRetry retries network-failed probes with doubling backoff.
// Affirmative answers (exists/gone) return immediately; only transport
// errors and inconclusive statuses burn attempts.
func (v *Verifier) probeWithRetry(ctx context.Context, identifier string) (ProbeResult, error) {
	var lastErr error
	delay := v.backoff
	for attempt := 1; attempt <= v.attempts; attempt++ {
		result, err := v.prober.Probe(ctx, identifier)
		if result == ProbeExists || result == ProbeGone {
			return result, nil
		}
		lastErr = err
		if attempt < v.attempts {
			v.sleep(delay)
			delay *= 2
		}
	}
	return ProbeInconclusive, lastErr
}

// openAccessLink walks the checkers in order. A checker failing is not a
// verdict; the next one is tried. Returns the link and the names of
// checkers that answered conclusively.
func (v *Verifier) openAccessLink(ctx context.Context, identifier string) (string, []string) {
	var checked []string
	for _, c := range v.checkers {
		link, err := c.OpenAccessLink(ctx, identifier)
		if err != nil {
			continue
		}
		checked = append(checked, c.Name())
		if link != "" {
			return link, checked
		}
	}
	return "", checked
}

// conclude advances the record's status and logs the decision. An
// illegal transition (e.g. a gone record reappearing) is suppressed and
// noted rather than applied: statuses only move forward.
func (v *Verifier) conclude(docID string, entry *document.BibEntry, to document.Status, outcome, rationale string) error {
	rec := entry.Resolved
	if err := rec.Advance(to); err != nil {
		rationale = fmt.Sprintf("%s; %v (keeping %s)", rationale, err, rec.Status)
	}
	return v.log.Append(decision.Record{
		Stage:      decision.StageVerify,
		DocumentID: docID,
		ItemID:     rec.Identifier,
		Outcome:    outcome,
		Confidence: rec.Confidence,
		Rationale:  rationale,
	})
}
