package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"university-query-engine/internal/config"
)

func TestSearchParsesSearXNGJSONResults(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"Admissions Office","url":"https://uni.edu/admissions","content":"Hours and contacts"},
			{"title":"Financial Aid","url":"https://uni.edu/aid","content":"Deadlines"}
		]}`))
	}))
	defer srv.Close()

	s := NewSearcher(config.WebConfig{SearXNGURL: srv.URL})
	results, err := s.Search(context.Background(), "admissions hours", "uni.edu")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Admissions Office" || results[0].Snippet != "Hours and contacts" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if !strings.Contains(gotQuery, "site:uni.edu") {
		t.Fatalf("expected domain filter appended to query, got %q", gotQuery)
	}
}

func TestSearchCapsAtFiveResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"title":"1","url":"u1","content":"c"},
			{"title":"2","url":"u2","content":"c"},
			{"title":"3","url":"u3","content":"c"},
			{"title":"4","url":"u4","content":"c"},
			{"title":"5","url":"u5","content":"c"},
			{"title":"6","url":"u6","content":"c"}
		]}`))
	}))
	defer srv.Close()

	s := NewSearcher(config.WebConfig{SearXNGURL: srv.URL})
	results, err := s.Search(context.Background(), "q", "")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected results capped at 5, got %d", len(results))
	}
}

func TestSearchWithoutEndpointConfiguredErrors(t *testing.T) {
	s := NewSearcher(config.WebConfig{})
	if _, err := s.Search(context.Background(), "q", ""); err == nil {
		t.Fatalf("expected error when no SearXNG endpoint is configured")
	}
}
