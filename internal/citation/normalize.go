package citation

import (
	"strconv"
	"strings"

	"github.com/citecheck/citecheck/internal/document"
	"github.com/citecheck/citecheck/internal/similarity"
)

// NormalizeMarker collapses a raw marker into a comparable key.
// "(Smith, 2020)" and "Smith 2020" both become "smith 2020"; numeric
// labels like "[3]" become "3". Filler tokens ("et al", "and") drop out.
func NormalizeMarker(raw string) string {
	norm := similarity.Normalize(raw)
	fields := strings.Fields(norm)
	if len(fields) == 0 {
		return ""
	}

	if n, ok := numericLabel(fields); ok {
		return n
	}

	var kept []string
	for _, f := range fields {
		switch f {
		case "et", "al", "and", "&":
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// numericLabel returns the label for purely numeric markers ("[3]",
// "(12)"). Multi-number markers like "[3,4]" keep only the first number;
// each number is a separate marker when extraction splits them.
func numericLabel(fields []string) (string, bool) {
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return "", false
		}
	}
	return fields[0], true
}

// entryKeys holds the comparable keys for one bib entry.
type entryKeys struct {
	exact      map[string]bool
	authorYear string
}

func (e entryKeys) has(key string) bool {
	return e.exact[key]
}

// buildKeys derives lookup keys for each entry: its ordinal position (for
// numeric markers, 1-based as rendered in running text) and a
// "surname year" key (for author-year markers).
func buildKeys(entries []document.BibEntry) []entryKeys {
	keys := make([]entryKeys, len(entries))
	for i, e := range entries {
		ek := entryKeys{exact: make(map[string]bool)}
		ek.exact[strconv.Itoa(i+1)] = true

		var parts []string
		if len(e.Authors) > 0 {
			if surname := similarity.Surname(e.Authors[0]); surname != "" {
				parts = append(parts, surname)
			}
		}
		if e.Year > 0 {
			parts = append(parts, strconv.Itoa(e.Year))
		}
		if len(parts) > 0 {
			ek.authorYear = strings.Join(parts, " ")
			ek.exact[ek.authorYear] = true
		}
		keys[i] = ek
	}
	return keys
}
