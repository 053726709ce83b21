package similarity

import (
	"math"
	"testing"
)

func TestRatio_Identical(t *testing.T) {
	if r := Ratio("deep learning", "deep learning"); r != 1 {
		t.Errorf("expected 1, got %g", r)
	}
}

func TestRatio_Empty(t *testing.T) {
	if r := Ratio("", ""); r != 1 {
		t.Errorf("expected empty-vs-empty to score 1, got %g", r)
	}
	if r := Ratio("", "something"); r != 0 {
		t.Errorf("expected empty-vs-nonempty to score 0, got %g", r)
	}
}

func TestRatio_SingleEdit(t *testing.T) {
	// One substitution over 4 runes: 1 - 1/4
	if r := Ratio("gene", "gane"); math.Abs(r-0.75) > 1e-9 {
		t.Errorf("expected 0.75, got %g", r)
	}
}

func TestRatio_Disjoint(t *testing.T) {
	if r := Ratio("abc", "xyz"); r != 0 {
		t.Errorf("expected 0 for fully disjoint strings, got %g", r)
	}
}

func TestTokenSetRatio_WordOrder(t *testing.T) {
	r := TokenSetRatio("Smith, J. and Jones, B.", "B Jones, J Smith")
	if r != 1 {
		t.Errorf("expected reordered token sets to score 1, got %g", r)
	}
}

func TestTokenSetRatio_Subset(t *testing.T) {
	// One side is a superset; the shared core against the smaller set is 1
	r := TokenSetRatio("phylogenetic inference", "bayesian phylogenetic inference methods")
	if r != 1 {
		t.Errorf("expected subset tokens to score 1, got %g", r)
	}
}

func TestTokenSetRatio_Empty(t *testing.T) {
	if r := TokenSetRatio("", ""); r != 1 {
		t.Errorf("expected 1 for both empty, got %g", r)
	}
	if r := TokenSetRatio("smith", ""); r != 0 {
		t.Errorf("expected 0 for one empty, got %g", r)
	}
}

func TestAuthorOverlap_EmptyListPasses(t *testing.T) {
	if r := AuthorOverlap(nil, []string{"Jane Smith"}); r != 1 {
		t.Errorf("expected missing author data to score 1, got %g", r)
	}
}

func TestAuthorOverlap_SurnameInitials(t *testing.T) {
	// "J. Smith" and "Jane Smith" share the surname; the Jaccard part
	// should be full even though forms differ.
	r := AuthorOverlap([]string{"J. Smith"}, []string{"Jane Smith"})
	if r <= 0.5 {
		t.Errorf("expected surname agreement to score well, got %g", r)
	}
}

func TestAuthorOverlap_SurnameFirst(t *testing.T) {
	// Comma form puts the surname first; it must still line up with the
	// forename-surname rendering of the same person.
	r := AuthorOverlap([]string{"Smith, J."}, []string{"Jane Smith"})
	if r <= 0.5 {
		t.Errorf("expected comma-form surname agreement to score well, got %g", r)
	}
}

func TestAuthorOverlap_Disjoint(t *testing.T) {
	same := AuthorOverlap([]string{"Jane Smith", "Bob Jones"}, []string{"Jane Smith", "Bob Jones"})
	diff := AuthorOverlap([]string{"Jane Smith"}, []string{"Carlos Diaz"})
	if diff >= same {
		t.Errorf("expected disjoint authors (%g) to score below identical (%g)", diff, same)
	}
}

func TestYearGate(t *testing.T) {
	cases := []struct {
		a, b int
		want bool
	}{
		{2020, 2020, true},
		{2020, 2021, true},
		{2021, 2020, true},
		{2020, 2022, false},
		{0, 2020, true},
		{2020, 0, true},
	}
	for _, c := range cases {
		if got := YearGate(c.a, c.b); got != c.want {
			t.Errorf("YearGate(%d, %d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCombined_YearGateZeroes(t *testing.T) {
	w := DefaultWeights
	r := Combined(w, "Exact Same Title", []string{"Jane Smith"}, 2010,
		"Exact Same Title", []string{"Jane Smith"}, 2015)
	if r != 0 {
		t.Errorf("expected failed year gate to zero the score, got %g", r)
	}
}

func TestCombined_PerfectMatch(t *testing.T) {
	w := DefaultWeights
	r := Combined(w, "A Perfect Title", []string{"Jane Smith"}, 2020,
		"a perfect title", []string{"Jane Smith"}, 2020)
	if math.Abs(r-1) > 1e-9 {
		t.Errorf("expected 1 for a normalized exact match, got %g", r)
	}
}

func TestCombined_TitleDominates(t *testing.T) {
	w := DefaultWeights
	good := Combined(w, "Population genetics of adaptation", []string{"Jane Smith"}, 2020,
		"Population genetics of adaptation", []string{"Carlos Diaz"}, 2020)
	bad := Combined(w, "Population genetics of adaptation", []string{"Jane Smith"}, 2020,
		"Graph neural networks", []string{"Jane Smith"}, 2020)
	if good <= bad {
		t.Errorf("expected title agreement (%g) to outweigh author agreement (%g)", good, bad)
	}
}

func TestSurname(t *testing.T) {
	cases := []struct {
		name, want string
	}{
		{"Jane Smith", "smith"},
		{"J. Smith", "smith"},
		{"Smith, J.", "smith"},
		{"Smith, Jane", "smith"},
		{"van der Berg, J.", "berg"},
		{"Smith", "smith"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Surname(c.name); got != c.want {
			t.Errorf("Surname(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  The Origin: of, SPECIES!  ")
	if got != "the origin of species" {
		t.Errorf("unexpected normalization: %q", got)
	}
}
