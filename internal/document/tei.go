package document

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// yearRe pulls the leading year out of a TEI date @when value
// ("2020", "2020-05", "2020-05-01").
var yearRe = regexp.MustCompile(`^(\d{4})`)

// LoadTEI reads a GROBID TEI XML file into a Document. The document ID is
// derived from the filename (base name without the .tei.xml extension).
//
// A file with no bibliography list or no body sentences is malformed input
// and returns an error: there is nothing meaningful to check.
func LoadTEI(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening TEI file: %w", err)
	}
	defer f.Close()

	doc, err := ParseTEI(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc.ID = DocumentID(path)
	doc.TEIPath = path
	return doc, nil
}

// DocumentID derives a document identifier from a TEI file path.
func DocumentID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".tei.xml")
	base = strings.TrimSuffix(base, ".xml")
	return base
}

// ParseTEI parses GROBID TEI XML from a reader.
func ParseTEI(r io.Reader) (*Document, error) {
	var tei teiDocument
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&tei); err != nil {
		return nil, fmt.Errorf("decoding TEI XML: %w", err)
	}

	doc := &Document{}

	sentIdx := 0
	for paraIdx, p := range tei.Text.Body.Paragraphs() {
		for _, s := range p.Sentences {
			text := s.flatText()
			for _, ref := range s.Refs {
				if ref.Type != "bibr" {
					continue
				}
				doc.Markers = append(doc.Markers, CitationMarker{
					SentenceIndex:  sentIdx,
					ParagraphIndex: paraIdx,
					RawText:        strings.TrimSpace(ref.Text),
					TargetID:       strings.TrimPrefix(ref.Target, "#"),
					Sentence:       text,
				})
			}
			sentIdx++
		}
	}

	for _, bibl := range tei.Text.Back.BiblStructs() {
		doc.Entries = append(doc.Entries, bibl.toEntry())
	}

	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("no bibliography entries found (missing listBibl)")
	}
	if sentIdx == 0 {
		return nil, fmt.Errorf("no body sentences found (was the TEI produced with segmentSentences?)")
	}

	return doc, nil
}

// teiDocument mirrors the parts of a GROBID TEI file we consume.
// Element matching is by local name, so the TEI namespace is ignored.
type teiDocument struct {
	XMLName xml.Name `xml:"TEI"`
	Text    struct {
		Body teiBody `xml:"body"`
		Back teiBack `xml:"back"`
	} `xml:"text"`
}

type teiBody struct {
	Divs []struct {
		Paras []teiPara `xml:"p"`
	} `xml:"div"`
}

// Paragraphs flattens body divs into a single ordered paragraph list.
func (b teiBody) Paragraphs() []teiPara {
	var out []teiPara
	for _, d := range b.Divs {
		out = append(out, d.Paras...)
	}
	return out
}

type teiPara struct {
	Sentences []teiSentence `xml:"s"`
}

// teiSentence collects the sentence's flat text and its bibliographic
// refs in document order. Decoded by hand because the text is interleaved
// with ref markup.
type teiSentence struct {
	Chunks []string
	Refs   []teiRef
}

type teiRef struct {
	Type   string
	Target string
	Text   string
}

func (s *teiSentence) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var ref *teiRef
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "ref" {
				r := teiRef{}
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "type":
						r.Type = a.Value
					case "target":
						r.Target = a.Value
					}
				}
				s.Refs = append(s.Refs, r)
				ref = &s.Refs[len(s.Refs)-1]
			}
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
			if t.Name.Local == "ref" {
				ref = nil
			}
		case xml.CharData:
			s.Chunks = append(s.Chunks, string(t))
			if ref != nil {
				ref.Text += string(t)
			}
		}
	}
}

// flatText returns the sentence text with markup removed and whitespace
// collapsed.
func (s teiSentence) flatText() string {
	return strings.Join(strings.Fields(strings.Join(s.Chunks, "")), " ")
}

type teiBack struct {
	Divs []struct {
		ListBibl struct {
			BiblStructs []teiBiblStruct `xml:"biblStruct"`
		} `xml:"listBibl"`
	} `xml:"div"`
}

// BiblStructs returns all bibliography entries from the back matter.
func (b teiBack) BiblStructs() []teiBiblStruct {
	var out []teiBiblStruct
	for _, d := range b.Divs {
		out = append(out, d.ListBibl.BiblStructs...)
	}
	return out
}

type teiBiblStruct struct {
	ID       string      `xml:"id,attr"`
	Analytic *teiBiblPart `xml:"analytic"`
	Monogr   *teiBiblPart `xml:"monogr"`
	Notes    []struct {
		Type string `xml:"type,attr"`
		Text string `xml:",chardata"`
	} `xml:"note"`
}

type teiBiblPart struct {
	Titles []struct {
		Type  string `xml:"type,attr"`
		Level string `xml:"level,attr"`
		Text  string `xml:",chardata"`
	} `xml:"title"`
	Authors []struct {
		PersName *struct {
			Forenames []string `xml:"forename"`
			Surname   string   `xml:"surname"`
		} `xml:"persName"`
	} `xml:"author"`
	IDNos []struct {
		Type string `xml:"type,attr"`
		Text string `xml:",chardata"`
	} `xml:"idno"`
	Imprint *struct {
		Dates []struct {
			Type string `xml:"type,attr"`
			When string `xml:"when,attr"`
		} `xml:"date"`
	} `xml:"imprint"`
}

// toEntry flattens a biblStruct into a BibEntry, preferring analytic
// fields (the article) over monogr fields (the container).
func (b teiBiblStruct) toEntry() BibEntry {
	entry := BibEntry{ID: b.ID}

	for _, n := range b.Notes {
		if n.Type == "raw_reference" {
			entry.Raw = strings.TrimSpace(n.Text)
		}
	}

	entry.Title = pickTitle(b.Analytic)
	entry.Authors = pickAuthors(b.Analytic)
	if entry.Authors == nil {
		entry.Authors = pickAuthors(b.Monogr)
	}
	venue := pickTitle(b.Monogr)
	if entry.Title == "" {
		entry.Title = venue
	} else {
		entry.Venue = venue
	}

	entry.SourceDOI = pickDOI(b.Analytic)
	if entry.SourceDOI == "" {
		entry.SourceDOI = pickDOI(b.Monogr)
	}

	if b.Monogr != nil && b.Monogr.Imprint != nil {
		for _, d := range b.Monogr.Imprint.Dates {
			if d.Type != "published" {
				continue
			}
			if m := yearRe.FindStringSubmatch(d.When); m != nil {
				entry.Year, _ = strconv.Atoi(m[1])
			}
		}
	}

	if entry.Raw == "" {
		entry.Raw = formatRaw(entry)
	}

	return entry
}

func pickTitle(p *teiBiblPart) string {
	if p == nil {
		return ""
	}
	// Prefer the main title over abbreviated forms
	for _, t := range p.Titles {
		if t.Type == "main" {
			return strings.TrimSpace(t.Text)
		}
	}
	for _, t := range p.Titles {
		if t.Type != "abbrev" {
			return strings.TrimSpace(t.Text)
		}
	}
	return ""
}

func pickAuthors(p *teiBiblPart) []string {
	if p == nil {
		return nil
	}
	var out []string
	for _, a := range p.Authors {
		if a.PersName == nil {
			continue
		}
		parts := append([]string{}, a.PersName.Forenames...)
		if a.PersName.Surname != "" {
			parts = append(parts, a.PersName.Surname)
		}
		name := strings.TrimSpace(strings.Join(parts, " "))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func pickDOI(p *teiBiblPart) string {
	if p == nil {
		return ""
	}
	for _, id := range p.IDNos {
		if strings.EqualFold(id.Type, "DOI") {
			return strings.TrimSpace(id.Text)
		}
	}
	return ""
}

// formatRaw builds a display string for entries GROBID did not carry a raw
// reference note for.
func formatRaw(e BibEntry) string {
	var parts []string
	if len(e.Authors) > 0 {
		parts = append(parts, strings.Join(e.Authors, ", "))
	}
	if e.Year > 0 {
		parts = append(parts, fmt.Sprintf("(%d)", e.Year))
	}
	if e.Title != "" {
		parts = append(parts, e.Title)
	}
	if e.Venue != "" {
		parts = append(parts, e.Venue)
	}
	return strings.Join(parts, ". ")
}
