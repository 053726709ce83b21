package align

import (
	"path/filepath"
	"testing"

	"github.com/citecheck/citecheck/internal/decision"
	"github.com/citecheck/citecheck/internal/document"
)

func testLog(t *testing.T) *decision.Log {
	t.Helper()
	log, err := decision.Open(filepath.Join(t.TempDir(), "decisions.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func testDoc() *document.Document {
	return &document.Document{
		ID: "paper",
		Markers: []document.CitationMarker{
			{SentenceIndex: 0, Sentence: "Claim one (Smith, 2020).", EntryID: "b0"},
			{SentenceIndex: 3, Sentence: "Claim two [2].", EntryID: "b1"},
			{SentenceIndex: 5, Sentence: "Unmatched claim."},
		},
		Entries: []document.BibEntry{
			{ID: "b0", Resolved: &document.ResolvedRecord{Identifier: "10.1/a", Status: document.StatusVerified}},
			{ID: "b1", Resolved: &document.ResolvedRecord{Identifier: "10.1/b", Status: document.StatusUnavailable}},
		},
	}
}

func TestPairs(t *testing.T) {
	a := &Aligner{Log: testLog(t)}
	doc := testDoc()

	pairs, err := a.Pairs(doc, map[string]string{"b0": "Full text of the cited work."})
	if err != nil {
		t.Fatal(err)
	}

	// Unmatched marker yields no pair; both matched markers do
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	p0 := pairs[0]
	if p0.EntryID != "b0" || p0.Missing {
		t.Errorf("expected b0 paired, got %+v", p0)
	}
	if p0.Retrieved != "Full text of the cited work." {
		t.Errorf("unexpected retrieved text: %q", p0.Retrieved)
	}
	if p0.Identifier != "10.1/a" {
		t.Errorf("unexpected identifier: %q", p0.Identifier)
	}
	if p0.SentenceIndex != 0 {
		t.Errorf("unexpected sentence index: %d", p0.SentenceIndex)
	}

	p1 := pairs[1]
	if !p1.Missing {
		t.Error("expected b1 flagged missing without retrieved text")
	}
	if p1.Retrieved != "" {
		t.Errorf("expected no retrieved text, got %q", p1.Retrieved)
	}
}

func TestCoverageOf(t *testing.T) {
	pairs := []document.CitingPair{
		{EntryID: "b0"},
		{EntryID: "b1", Missing: true},
		{EntryID: "b0"},
	}
	cov := CoverageOf(pairs)
	if cov.Total != 3 || cov.Paired != 2 || cov.Missing != 1 {
		t.Errorf("unexpected coverage: %+v", cov)
	}
}

func TestPairs_EmptyRetrieved(t *testing.T) {
	a := &Aligner{Log: testLog(t)}
	doc := testDoc()

	pairs, err := a.Pairs(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	cov := CoverageOf(pairs)
	if cov.Paired != 0 || cov.Missing != 2 {
		t.Errorf("expected all pairs missing, got %+v", cov)
	}
}
