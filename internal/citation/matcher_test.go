package citation

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
			{SentenceIndex: 0, RawText: "(Smith, 2020)", Sentence: "First claim (Smith, 2020)."},
			{SentenceIndex: 1, RawText: "[2]", Sentence: "Second claim [2]."},
			{SentenceIndex: 2, RawText: "(Nguyen, 1990)", Sentence: "Unsupported claim (Nguyen, 1990)."},
		},
		Entries: []document.BibEntry{
			{ID: "b0", Authors: []string{"Jane Smith"}, Title: "Adaptation", Year: 2020},
			{ID: "b1", Authors: []string{"Bob Jones"}, Title: "Theory", Year: 1998},
			{ID: "b2", Authors: []string{"Carlos Diaz"}, Title: "Methods", Year: 2005},
		},
	}
}

func TestMatch_AuthorYearAndNumeric(t *testing.T) {
	m := &Matcher{Threshold: 0.75, Log: testLog(t)}
	doc := testDoc()

	res, err := m.Match(doc)
	if err != nil {
		t.Fatal(err)
	}

	if doc.Markers[0].EntryID != "b0" {
		t.Errorf("expected (Smith, 2020) to match b0, got %q", doc.Markers[0].EntryID)
	}
	if doc.Markers[1].EntryID != "b1" {
		t.Errorf("expected [2] to match b1 by ordinal, got %q", doc.Markers[1].EntryID)
	}
	if doc.Markers[2].EntryID != "" {
		t.Errorf("expected (Nguyen, 1990) to stay unmatched, got %q", doc.Markers[2].EntryID)
	}

	if len(res.Unmatched) != 1 || res.Unmatched[0] != "(Nguyen, 1990)" {
		t.Errorf("unexpected unmatched list: %v", res.Unmatched)
	}
	if len(res.Uncited) != 1 || res.Uncited[0] != "b2" {
		t.Errorf("unexpected uncited list: %v", res.Uncited)
	}
	if res.Clear {
		t.Error("expected Clear to be false with unmatched and uncited items")
	}
}

func TestMatch_TargetIDWins(t *testing.T) {
	m := &Matcher{Threshold: 0.75, Log: testLog(t)}
	doc := &document.Document{
		ID: "paper",
		Markers: []document.CitationMarker{
			// Raw text points at Smith, but extraction says b1
			{RawText: "(Smith, 2020)", TargetID: "b1"},
		},
		Entries: []document.BibEntry{
			{ID: "b0", Authors: []string{"Jane Smith"}, Year: 2020},
			{ID: "b1", Authors: []string{"Bob Jones"}, Year: 1998},
		},
	}

	res, err := m.Match(doc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Markers[0].EntryID != "b1" {
		t.Errorf("expected extraction target to win, got %q", doc.Markers[0].EntryID)
	}
	if !res.Outcomes[0].Exact {
		t.Error("expected a target-ID match to be exact")
	}
}

func TestMatch_FillerTokensDropToExact(t *testing.T) {
	m := &Matcher{Threshold: 0.75, Log: testLog(t)}
	doc := &document.Document{
		ID: "paper",
		Markers: []document.CitationMarker{
			// "smith et al 2020" normalizes to the same key as the entry
			{RawText: "Smith et al., 2020"},
		},
		Entries: []document.BibEntry{
			{ID: "b0", Authors: []string{"Jane Smith"}, Year: 2020},
		},
	}

	res, err := m.Match(doc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Markers[0].EntryID != "b0" {
		t.Fatalf("expected match to b0, got %q", doc.Markers[0].EntryID)
	}
	if !res.Outcomes[0].Exact {
		t.Error("expected filler-token normalization to produce an exact key match")
	}
}

func TestMatch_SurnameFirstAuthor(t *testing.T) {
	m := &Matcher{Threshold: 0.75, Log: testLog(t)}
	doc := &document.Document{
		ID: "paper",
		Markers: []document.CitationMarker{
			{RawText: "(Smith 2020)"},
		},
		Entries: []document.BibEntry{
			// Comma form: surname before the initial
			{ID: "b0", Authors: []string{"Smith, J."}, Title: "Title X", Year: 2020},
		},
	}

	res, err := m.Match(doc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Markers[0].EntryID != "b0" {
		t.Fatalf("expected (Smith 2020) to match b0, got %q", doc.Markers[0].EntryID)
	}
	if !res.Outcomes[0].Exact {
		t.Error("expected the comma-form surname to produce an exact key match")
	}
}

func TestMatch_FuzzyFallback(t *testing.T) {
	m := &Matcher{Threshold: 0.5, Log: testLog(t)}
	doc := &document.Document{
		ID: "paper",
		Markers: []document.CitationMarker{
			// Extra surname keeps it off the exact key but the token-set
			// core still scores high
			{RawText: "Smith, Jones 2020"},
		},
		Entries: []document.BibEntry{
			{ID: "b0", Authors: []string{"Jane Smith"}, Year: 2020},
		},
	}

	res, err := m.Match(doc)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Markers[0].EntryID != "b0" {
		t.Fatalf("expected fuzzy match to b0, got %q", doc.Markers[0].EntryID)
	}
	if res.Outcomes[0].Exact {
		t.Error("expected a fuzzy match, not exact")
	}
	if res.Outcomes[0].Similarity < 0.5 {
		t.Errorf("expected similarity above threshold, got %g", res.Outcomes[0].Similarity)
	}
}

func TestMatch_Clear(t *testing.T) {
	m := &Matcher{Threshold: 0.75, Log: testLog(t)}
	doc := &document.Document{
		ID:      "paper",
		Markers: []document.CitationMarker{{RawText: "[1]"}},
		Entries: []document.BibEntry{{ID: "b0", Title: "Only"}},
	}

	res, err := m.Match(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Clear {
		t.Errorf("expected Clear, got unmatched=%v uncited=%v", res.Unmatched, res.Uncited)
	}
}

func TestNormalizeMarker(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"(Smith, 2020)", "smith 2020"},
		{"Smith 2020", "smith 2020"},
		{"Smith et al., 2020", "smith 2020"},
		{"Smith and Jones (2020)", "smith jones 2020"},
		{"[3]", "3"},
		{"(12)", "12"},
		{"[3,4]", "3"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeMarker(c.raw); got != c.want {
			t.Errorf("NormalizeMarker(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}
