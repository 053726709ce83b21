// Package similarity provides fuzzy string scoring for bibliographic
// matching. All functions are pure: they take strings and return a score
// in [0,1], with no I/O, so scoring stays independently testable from the
// network lookups that feed it.
package similarity

import (
	"sort"
	"strings"
	"unicode"
)

// Ratio is a normalized similarity based on Levenshtein edit distance:
// 1 - distance/maxLen. Empty-vs-empty scores 1; empty-vs-nonempty 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

// TokenSetRatio compares the unique word sets of two strings, ignoring
// word order and repetition. It scores the shared-token core against each
// full set and returns the best of the three pairwise ratios, matching
// the behavior bibliographic tooling conventionally relies on for author
// lists ("Smith, J. and Jones, B." vs "B Jones, J Smith").
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(shared, " ")
	full1 := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := Ratio(core, full1)
	if r := Ratio(core, full2); r > best {
		best = r
	}
	if r := Ratio(full1, full2); r > best {
		best = r
	}
	return best
}

// AuthorOverlap scores two author lists by blending a token-set ratio
// with Jaccard overlap of the normalized name sets (0.7/0.3). Either list
// being empty scores 1: absence of author data is not evidence of a
// mismatch.
func AuthorOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 1
	}
	sa, sb := nameSet(a), nameSet(b)

	inter := 0
	for n := range sa {
		if sb[n] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	jaccard := float64(inter) / float64(union)

	token := TokenSetRatio(strings.Join(a, " "), strings.Join(b, " "))
	return 0.7*token + 0.3*jaccard
}

// YearGate reports whether two publication years are compatible: equal or
// within one year (off-by-one is common across registration vs. print
// dates). A zero year on either side passes the gate.
func YearGate(a, b int) bool {
	if a == 0 || b == 0 {
		return true
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 1
}

// Weights control the combined bibliographic score. Title dominates,
// authors are a secondary signal, and year acts as a gate rather than a
// weighted term.
type Weights struct {
	Title   float64 `yaml:"title"`
	Authors float64 `yaml:"authors"`
}

// DefaultWeights is the starting point; tune via pipeline config.
var DefaultWeights = Weights{Title: 0.7, Authors: 0.3}

// Combined computes the weighted similarity between a bib entry's parsed
// fields and a candidate record's fields. A failed year gate zeroes the
// score outright.
func Combined(w Weights, entryTitle string, entryAuthors []string, entryYear int,
	candTitle string, candAuthors []string, candYear int) float64 {
	if !YearGate(entryYear, candYear) {
		return 0
	}
	title := Ratio(Normalize(entryTitle), Normalize(candTitle))
	authors := AuthorOverlap(a2norm(entryAuthors), a2norm(candAuthors))
	sum := w.Title + w.Authors
	if sum == 0 {
		return 0
	}
	return (w.Title*title + w.Authors*authors) / sum
}

// Normalize lowercases, strips punctuation, and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func a2norm(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Normalize(n)
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(Normalize(s)) {
		set[t] = true
	}
	return set
}

// Surname extracts the surname from a single author name in either
// order: "Jane Smith", "J. Smith", and "Smith, J." all yield "smith".
// A comma marks surname-first form; without one the last token is taken
// as the surname. Empty input yields "".
func Surname(name string) string {
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	fields := strings.Fields(Normalize(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// nameSet normalizes author names down to surnames where possible, so
// "J. Smith", "Jane Smith", and "Smith, J." coincide.
func nameSet(names []string) map[string]bool {
	set := make(map[string]bool)
	for _, n := range names {
		if s := Surname(n); s != "" {
			set[s] = true
		}
	}
	return set
}

// levenshtein computes edit distance with a two-row rolling buffer.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
