package unpaywall

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citecheck/citecheck/internal/provider"
)

func TestOpenAccessLink_PrefersPDF(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")

	var gotEmail string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail = r.URL.Query().Get("email")
		w.Write([]byte(`{"best_oa_location": {"url_for_pdf": "https://example.org/p.pdf", "url": "https://example.org/landing"}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithEmail("team@example.org"))
	link, err := c.OpenAccessLink(context.Background(), "10.1/x")
	if err != nil {
		t.Fatal(err)
	}
	if link != "https://example.org/p.pdf" {
		t.Errorf("expected the PDF link, got %q", link)
	}
	if gotEmail != "team@example.org" {
		t.Errorf("expected the email parameter, got %q", gotEmail)
	}
}

func TestOpenAccessLink_LandingFallback(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"best_oa_location": {"url": "https://example.org/landing"}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	link, err := c.OpenAccessLink(context.Background(), "10.1/x")
	if err != nil {
		t.Fatal(err)
	}
	if link != "https://example.org/landing" {
		t.Errorf("expected the landing URL, got %q", link)
	}
}

func TestOpenAccessLink_NoLocation(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"best_oa_location": null}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	link, err := c.OpenAccessLink(context.Background(), "10.1/x")
	if err != nil {
		t.Fatal(err)
	}
	if link != "" {
		t.Errorf("expected no link, got %q", link)
	}
}

func TestOpenAccessLink_NotFound(t *testing.T) {
	t.Setenv("CITECHECK_MAILTO", "")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	_, err := c.OpenAccessLink(context.Background(), "10.0000/missing")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
