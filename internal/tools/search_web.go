package tools

import (
	"context"
	"fmt"
	"strings"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/web"
)

// SearchWeb calls the configured web search engine, optionally scoped to a
// single domain, and returns up to 5 results plus a short summary.
type SearchWeb struct {
	Searcher web.Searcher
}

func (h *SearchWeb) ToolType() domain.ToolType { return domain.ToolSearchWeb }

func (h *SearchWeb) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, fmt.Errorf("search_web: query is required")
	}
	domainFilter := argString(args, "domain_filter")

	results, err := h.Searcher.Search(ctx, query, domainFilter)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(results))
	var summary strings.Builder
	for _, r := range results {
		out = append(out, map[string]any{
			"title":   r.Title,
			"snippet": r.Snippet,
			"url":     r.URL,
		})
		fmt.Fprintf(&summary, "- %s: %s\n", r.Title, r.URL)
	}

	return map[string]any{
		"results": out,
		"summary": summary.String(),
	}, nil
}
