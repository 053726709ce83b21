// Package citation matches in-text citation markers to bibliography
// entries within one document.
package citation

import (
	"fmt"

	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/similarity"
)

// Matcher matches markers to bib entries. Exact key equality wins; fuzzy
// similarity above Threshold is the fallback.
type Matcher struct {
	Threshold float64
	Log       *decision.Log
}

// MarkerOutcome records how one marker fared.
type MarkerOutcome struct {
	RawText    string  `json:"raw_text"`
	Sentence   string  `json:"sentence"`
	EntryID    string  `json:"entry_id,omitempty"`
	Matched    bool    `json:"matched"`
	Exact      bool    `json:"exact,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// Result is the per-document match summary. Unmatched markers and uncited
// entries are distinct outcome categories: both are citation/bibliography
// stuffing signals, not errors.
type Result struct {
	DocumentID string          `json:"document_id"`
	Outcomes   []MarkerOutcome `json:"outcomes"`
	Unmatched  []string        `json:"unmatched_markers"` // Raw marker texts with no entry
	Uncited    []string        `json:"uncited_entries"`   // Entry IDs no marker references
	Clear      bool            `json:"clear"`             // True when both lists are empty
}

// Match matches every marker in the document and writes one decision per
// marker plus one per uncited entry. Marker EntryID fields are filled in
// place; each marker ends matched-to-one-entry or unmatched, never
// ambiguous.
func (m *Matcher) Match(doc *document.Document) (*Result, error) {
	keys := buildKeys(doc.Entries)
	res := &Result{DocumentID: doc.ID}
	cited := make(map[string]bool)

	for i := range doc.Markers {
		marker := &doc.Markers[i]
		entryID, exact, score := m.matchOne(marker, doc.Entries, keys)

		out := MarkerOutcome{
			RawText:  marker.RawText,
			Sentence: marker.Sentence,
		}
		if entryID != "" {
			marker.EntryID = entryID
			cited[entryID] = true
			out.EntryID = entryID
			out.Matched = true
			out.Exact = exact
			out.Similarity = score
		} else {
			res.Unmatched = append(res.Unmatched, marker.RawText)
		}
		res.Outcomes = append(res.Outcomes, out)

		if err := m.logMarker(doc.ID, marker, out); err != nil {
			return nil, err
		}
	}

	for _, entry := range doc.Entries {
		if cited[entry.ID] {
			continue
		}
		res.Uncited = append(res.Uncited, entry.ID)
		err := m.Log.Append(decision.Record{
			Stage:      decision.StageMatch,
			DocumentID: doc.ID,
			ItemID:     entry.ID,
			Outcome:    decision.OutcomeUncited,
			Rationale:  "bibliography entry never referenced by any marker",
		})
		if err != nil {
			return nil, err
		}
	}

	res.Clear = len(res.Unmatched) == 0 && len(res.Uncited) == 0
	return res, nil
}

// matchOne finds the best entry for a marker. Returns the entry ID, an
// exact flag, and the similarity score (1 for exact matches).
func (m *Matcher) matchOne(marker *document.CitationMarker, entries []document.BibEntry, keys []entryKeys) (string, bool, float64) {
	// Extraction-supplied target beats everything when it names a real entry
	if marker.TargetID != "" {
		for _, e := range entries {
			if e.ID == marker.TargetID {
				return e.ID, true, 1
			}
		}
	}

	key := NormalizeMarker(marker.RawText)
	if key == "" {
		return "", false, 0
	}

	for i, ek := range keys {
		if ek.has(key) {
			return entries[i].ID, true, 1
		}
	}

	// Fuzzy fallback: best similarity above threshold, earliest entry on
	// ties.
	bestIdx, bestScore := -1, 0.0
	for i, ek := range keys {
		if ek.authorYear == "" {
			continue
		}
		score := similarity.TokenSetRatio(key, ek.authorYear)
		if score >= m.Threshold && score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx >= 0 {
		return entries[bestIdx].ID, false, bestScore
	}
	return "", false, 0
}

func (m *Matcher) logMarker(docID string, marker *document.CitationMarker, out MarkerOutcome) error {
	rec := decision.Record{
		Stage:      decision.StageMatch,
		DocumentID: docID,
		ItemID:     marker.RawText,
		Confidence: out.Similarity,
	}
	if out.Matched {
		rec.Outcome = decision.OutcomeMatched
		how := "fuzzy"
		if out.Exact {
			how = "exact"
		}
		rec.Rationale = fmt.Sprintf("%s match to entry %s", how, out.EntryID)
	} else {
		rec.Outcome = decision.OutcomeUnmatched
		rec.Rationale = "no bibliography entry above threshold"
	}
	return m.Log.Append(rec)
}
