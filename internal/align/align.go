// Package align pairs citing sentences with the retrieved text of the
// records they cite, producing the units a downstream entailment check
// consumes.
package align

import (
	"fmt"

	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
)

// Aligner builds CitingPairs. Purely computational: retrieval has
// already happened (or failed) by the time it runs.
type Aligner struct {
	Log *decision.Log
}

// Pairs produces one CitingPair per matched marker. retrieved maps bib
// entry IDs to their retrieved full text; a marker whose entry has no
// retrieved text still yields a pair, flagged missing, so coverage gaps
// are countable instead of silently dropped. Segmenting the retrieved
// text into candidate supporting spans is left to the entailment stage.
func (a *Aligner) Pairs(doc *document.Document, retrieved map[string]string) ([]document.CitingPair, error) {
	var pairs []document.CitingPair

	for _, marker := range doc.Markers {
		if marker.EntryID == "" {
			continue // Unmatched markers were already reported by the matcher
		}
		entry := doc.EntryByID(marker.EntryID)
		if entry == nil {
			continue
		}

		pair := document.CitingPair{
			EntryID:       marker.EntryID,
			SentenceIndex: marker.SentenceIndex,
			Sentence:      marker.Sentence,
		}
		if entry.Resolved != nil {
			pair.Identifier = entry.Resolved.Identifier
		}

		text, ok := retrieved[marker.EntryID]
		outcome := decision.OutcomeMissing
		rationale := "no retrieved text for cited record"
		if ok && text != "" {
			pair.Retrieved = text
			outcome = decision.OutcomePaired
			rationale = fmt.Sprintf("sentence %d paired with %s", marker.SentenceIndex, pair.Identifier)
		} else {
			pair.Missing = true
		}
		pairs = append(pairs, pair)

		err := a.Log.Append(decision.Record{
			Stage:      decision.StageAlign,
			DocumentID: doc.ID,
			ItemID:     fmt.Sprintf("%s@s%d", marker.EntryID, marker.SentenceIndex),
			Outcome:    outcome,
			Rationale:  rationale,
		})
		if err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

// Coverage summarizes pairing completeness for a document.
type Coverage struct {
	Total   int `json:"total"`
	Paired  int `json:"paired"`
	Missing int `json:"missing"`
}

// Coverage counts paired vs missing pairs.
func CoverageOf(pairs []document.CitingPair) Coverage {
	c := Coverage{Total: len(pairs)}
	for _, p := range pairs {
		if p.Missing {
			c.Missing++
		} else {
			c.Paired++
		}
	}
	return c
}
