// Package retrieve fetches the artifact behind a verified record and
// converts it to structured text for downstream alignment.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/citecheck/citecheck/internal/document"
)

// ErrNotRetrievable indicates the record exists but its content could
// not be obtained. A data outcome, not a pipeline failure.
var ErrNotRetrievable = errors.New("record content not retrievable")

// maxPDFBytes caps downloads; open-access PDFs beyond this are refused.
const maxPDFBytes = 100 << 20

// Retriever is the retrieval/conversion contract: given a verified,
// accessible record, return its structured text. destDir receives any
// artifacts (the PDF, the converted TEI) for audit.
type Retriever interface {
	Retrieve(ctx context.Context, rec *document.ResolvedRecord, destDir string) (string, error)
}

// Fetcher downloads the open-access PDF and converts it: via GROBID when
// a converter is configured and healthy, otherwise by local plain-text
// extraction from the PDF.
type Fetcher struct {
	httpClient *http.Client
	grobid     *GrobidClient // nil means local extraction only
}

// NewFetcher creates a Fetcher. grobid may be nil.
func NewFetcher(grobid *GrobidClient) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		grobid:     grobid,
	}
}

// Retrieve implements Retriever.
func (f *Fetcher) Retrieve(ctx context.Context, rec *document.ResolvedRecord, destDir string) (string, error) {
	if rec.OpenAccessURL == "" {
		return "", fmt.Errorf("%w: no open-access URL", ErrNotRetrievable)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}

	pdfPath := filepath.Join(destDir, SanitizeFilename(rec.Identifier)+".pdf")
	if err := f.downloadPDF(ctx, rec.OpenAccessURL, pdfPath); err != nil {
		return "", err
	}

	if f.grobid != nil {
		teiXML, err := f.grobid.ProcessFulltext(ctx, pdfPath)
		if err == nil {
			teiPath := strings.TrimSuffix(pdfPath, ".pdf") + ".tei.xml"
			if werr := os.WriteFile(teiPath, []byte(teiXML), 0644); werr != nil {
				return "", fmt.Errorf("saving TEI: %w", werr)
			}
			return TEIBodyText(strings.NewReader(teiXML))
		}
		// Conversion failed; fall through to local extraction
	}

	text, err := pdfText(pdfPath)
	if err != nil {
		return "", fmt.Errorf("%w: extracting text: %v", ErrNotRetrievable, err)
	}
	return text, nil
}

// downloadPDF fetches the PDF, refusing non-PDF payloads (paywalled
// landing pages often answer 200 with HTML).
func (f *Fetcher) downloadPDF(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: downloading %s: %v", ErrNotRetrievable, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download status %d from %s", ErrNotRetrievable, resp.StatusCode, rawURL)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/pdf") {
		return fmt.Errorf("%w: unexpected content type %q from %s", ErrNotRetrievable, ct, rawURL)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxPDFBytes)); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}

// pdfText extracts plain text from all pages of a PDF.
func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// SanitizeFilename replaces characters unsafe in filenames.
func SanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
