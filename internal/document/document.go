// Package document defines the core domain types for citation checking.
package document

import "fmt"

// Document is one source article after extraction: its in-text citation
// markers and its bibliography, in document order. Immutable after load.
type Document struct {
	ID      string           `json:"id"`
	Markers []CitationMarker `json:"markers"`
	Entries []BibEntry       `json:"entries"`
	TEIPath string           `json:"tei_path,omitempty"`
}

// CitationMarker is an in-text token referring to a bib entry, e.g.
// "(Smith, 2020)" or "[3]".
type CitationMarker struct {
	// Position within the document
	SentenceIndex  int `json:"sentence_index"`
	ParagraphIndex int `json:"paragraph_index"`

	RawText  string `json:"raw_text"`            // Marker text as it appears
	TargetID string `json:"target_id,omitempty"` // Extraction-supplied target (e.g. "b12"), may be empty

	Sentence string `json:"sentence"` // Full text of the sentence containing the marker

	// EntryID is the ID of the matched bib entry. Empty until the matcher
	// runs; stays empty for unmatched markers. A relation, not ownership:
	// many markers may reference one entry.
	EntryID string `json:"entry_id,omitempty"`
}

// BibEntry is a single bibliography item: the raw string plus whatever
// fields the extractor managed to parse. Any parsed field may be empty.
type BibEntry struct {
	ID      string   `json:"id"` // Extraction identifier (e.g. "b0")
	Raw     string   `json:"raw"`
	Authors []string `json:"authors,omitempty"`
	Title   string   `json:"title,omitempty"`
	Year    int      `json:"year,omitempty"`
	Venue   string   `json:"venue,omitempty"`

	// SourceDOI is a DOI embedded in the bibliography itself, when the
	// extractor found one. Not trusted until resolved independently.
	SourceDOI string `json:"source_doi,omitempty"`

	// Resolved is the external record this entry resolved to, if any.
	// At most one at a time; re-resolution replaces it.
	Resolved *ResolvedRecord `json:"resolved,omitempty"`
}

// ResolvedRecord is an external authoritative record believed to
// correspond to a bib entry.
type ResolvedRecord struct {
	Identifier string  `json:"identifier"` // DOI
	Provider   string  `json:"provider"`   // Which source supplied it
	Confidence float64 `json:"confidence"` // Combined match score in [0,1]
	Status     Status  `json:"status"`

	OpenAccessURL string `json:"open_access_url,omitempty"` // Set by verification
}

// CitingPair links a citing sentence to the retrieved text of the record
// it cites. Retrieved is empty when retrieval failed; Missing says so
// explicitly so coverage gaps stay countable.
type CitingPair struct {
	EntryID       string `json:"entry_id"`
	SentenceIndex int    `json:"sentence_index"`
	Sentence      string `json:"citing_sentence"`
	Identifier    string `json:"identifier,omitempty"` // DOI of the cited record
	Retrieved     string `json:"retrieved,omitempty"`  // Full retrieved text
	Missing       bool   `json:"missing"`
}

// Status is the verification state of a resolved record.
type Status string

const (
	StatusUnknown     Status = "unknown"     // Not yet verified
	StatusVerified    Status = "verified"    // Dereferences and is accessible
	StatusUnavailable Status = "unavailable" // Exists but not retrievable, or check inconclusive
	StatusGone        Status = "gone"        // Identifier no longer resolves
)

// CanAdvance reports whether a status transition is legal. Transitions
// only move forward: unknown -> {verified, unavailable} -> gone. A status
// never reverts to unknown, gone is terminal, and verified never weakens
// to unavailable. Unavailable may still strengthen to verified: it also
// covers "we couldn't check", which a later successful check overturns.
// Re-asserting the current status is always legal (verification is
// idempotent).
func CanAdvance(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusUnknown:
		return to == StatusVerified || to == StatusUnavailable || to == StatusGone
	case StatusVerified:
		return to == StatusGone
	case StatusUnavailable:
		return to == StatusVerified || to == StatusGone
	}
	return false
}

// Advance moves the record to a new status, rejecting illegal transitions.
func (r *ResolvedRecord) Advance(to Status) error {
	if !CanAdvance(r.Status, to) {
		return fmt.Errorf("illegal status transition %s -> %s for %s", r.Status, to, r.Identifier)
	}
	r.Status = to
	return nil
}

// EntryByID returns the bib entry with the given ID, or nil.
func (d *Document) EntryByID(id string) *BibEntry {
	for i := range d.Entries {
		if d.Entries[i].ID == id {
			return &d.Entries[i]
		}
	}
	return nil
}
