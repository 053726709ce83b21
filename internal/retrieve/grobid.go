package retrieve

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// GrobidClient talks to a GROBID instance for PDF-to-TEI conversion.
type GrobidClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewGrobidClient creates a client for the GROBID service at baseURL
// (e.g. http://127.0.0.1:8070). Conversion of a full document can take a
// while, hence the generous timeout.
func NewGrobidClient(baseURL string) *GrobidClient {
	return &GrobidClient{
		httpClient: &http.Client{Timeout: 3 * time.Minute},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Health checks the GROBID health endpoint. Called once up front: a dead
// converter makes retrieval pointless, not each item individually.
func (g *GrobidClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GROBID health check: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GROBID health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// ProcessFulltext sends a PDF through processFulltextDocument and
// returns the TEI XML. Consolidation and sentence segmentation are
// requested so the output aligns with source-document TEI.
func (g *GrobidClient) ProcessFulltext(ctx context.Context, pdfPath string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("input", filepath.Base(pdfPath))
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", pdfPath, err)
	}
	for field, value := range map[string]string{
		"consolidateHeader":    "1",
		"consolidateCitations": "1",
		"includeRawCitations":  "1",
		"segmentSentences":     "1",
	} {
		if err := w.WriteField(field, value); err != nil {
			return "", fmt.Errorf("building upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	url := g.baseURL + "/api/processFulltextDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling GROBID: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GROBID returned status %d for %s", resp.StatusCode, pdfPath)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading GROBID response: %w", err)
	}
	return string(data), nil
}

// TEIBodyText flattens the body of a TEI document to plain text with
// whitespace collapsed.
func TEIBodyText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var parts []string
	inBody := false
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing TEI: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "body" {
				inBody = true
				depth = 0
			} else if inBody {
				depth++
			}
		case xml.EndElement:
			if inBody {
				if depth == 0 && t.Name.Local == "body" {
					inBody = false
				} else {
					depth--
				}
			}
		case xml.CharData:
			if inBody {
				parts = append(parts, string(t))
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}
