package openalex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citecheck/citecheck/internal/provider"
)

const searchResponse = `{
  "results": [
    {
      "doi": "https://doi.org/10.1234/PGA.2020",
      "title": "Population genetics of adaptation",
      "authorships": [{"author": {"display_name": "Jane Smith"}}],
      "publication_year": 2020,
      "relevance_score": 412.5,
      "open_access": {"is_oa": true, "oa_url": "https://example.org/oa.pdf"}
    },
    {
      "doi": "",
      "title": "Preprint without a DOI",
      "publication_year": 2020
    }
  ]
}`

func TestQueryByMetadata(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")

	var gotSearch, gotFilter string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(searchResponse))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	cands, err := c.QueryByMetadata(context.Background(), provider.Query{
		Title: "Population genetics of adaptation",
		Year:  2020,
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotSearch != "Population genetics of adaptation" {
		t.Errorf("unexpected search: %q", gotSearch)
	}
	if gotFilter != "publication_year:2019-2021" {
		t.Errorf("unexpected filter: %q", gotFilter)
	}

	// The DOI-less result must be dropped
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	c0 := cands[0]
	if c0.Identifier != "10.1234/pga.2020" {
		t.Errorf("expected stripped, lowercased DOI, got %q", c0.Identifier)
	}
	if c0.OpenAccessURL != "https://example.org/oa.pdf" {
		t.Errorf("unexpected OA URL: %q", c0.OpenAccessURL)
	}
	if c0.Provider != Name {
		t.Errorf("unexpected provider tag: %q", c0.Provider)
	}
}

func TestOpenAccessLink_PrefersPDF(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"doi": "https://doi.org/10.1/x",
			"open_access": {"is_oa": true, "oa_url": "https://example.org/landing"},
			"best_oa_location": {"pdf_url": "https://example.org/paper.pdf", "landing_page_url": "https://example.org/landing"}
		}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	link, err := c.OpenAccessLink(context.Background(), "10.1/x")
	if err != nil {
		t.Fatal(err)
	}
	if link != "https://example.org/paper.pdf" {
		t.Errorf("expected the direct PDF link, got %q", link)
	}
}

func TestOpenAccessLink_NoOA(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"doi": "https://doi.org/10.1/x", "open_access": {"is_oa": false}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	link, err := c.OpenAccessLink(context.Background(), "10.1/x")
	if err != nil {
		t.Fatal(err)
	}
	if link != "" {
		t.Errorf("expected no link for a closed work, got %q", link)
	}
}
