package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"university-query-engine/internal/config"
)

// SearchResult is one hit from a web search (§4.8 search_web).
type SearchResult struct {
	Title   string
	Snippet string
	URL     string
}

// Searcher queries a web search engine.
type Searcher interface {
	Search(ctx context.Context, query string, domainFilter string) ([]SearchResult, error)
}

// searxngSearcher queries a SearXNG instance's JSON API.
type searxngSearcher struct {
	client  *http.Client
	baseURL string
}

// NewSearcher builds a Searcher against the configured SearXNG instance.
func NewSearcher(cfg config.WebConfig) Searcher {
	return &searxngSearcher{
		client:  &http.Client{Timeout: 12 * time.Second},
		baseURL: strings.TrimSuffix(cfg.SearXNGURL, "/"),
	}
}

const maxSearchResults = 5

// Search appends `site:<domain>` to the query when domainFilter is given,
// queries SearXNG's JSON API, and returns up to maxSearchResults hits.
func (s *searxngSearcher) Search(ctx context.Context, query string, domainFilter string) ([]SearchResult, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("web search: no SearXNG endpoint configured")
	}
	q := strings.TrimSpace(query)
	if domainFilter != "" {
		q = fmt.Sprintf("%s site:%s", q, domainFilter)
	}

	v := url.Values{}
	v.Set("q", q)
	v.Set("format", "json")
	v.Set("categories", "general")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", uaList[int(time.Now().UnixNano())%len(uaList)])

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("searxng http %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, maxSearchResults)
	for _, r := range parsed.Results {
		if len(out) >= maxSearchResults {
			break
		}
		out = append(out, SearchResult{
			Title:   strings.TrimSpace(r.Title),
			Snippet: strings.TrimSpace(r.Content),
			URL:     r.URL,
		})
	}
	return out, nil
}
