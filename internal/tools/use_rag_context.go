package tools

import (
	"context"
	"fmt"
	"strings"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/rag"
	"university-query-engine/internal/vectorindex"
)

// UseRAGContext answers strictly from retrieved chunk content: either the
// chunk_ids already surfaced by a prior search, or a fresh query run
// through the RAG Engine.
type UseRAGContext struct {
	RAG        *rag.Engine
	Index      vectorindex.Index
	Collection string
	Provider   llm.Provider
	Model      string
}

func (h *UseRAGContext) ToolType() domain.ToolType { return domain.ToolUseRAGContext }

func (h *UseRAGContext) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	confidence := argString(args, "confidence")
	if confidence == "" {
		confidence = "medium"
	}

	var results []rag.Result
	if ids := argStringSlice(args, "chunk_ids"); len(ids) > 0 {
		rs, err := h.resolveByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		results = rs
	} else {
		query := argString(args, "query")
		if query == "" {
			return nil, fmt.Errorf("use_rag_context: requires chunk_ids or query")
		}
		rs, err := h.RAG.Search(ctx, query, rag.SearchConfig{})
		if err != nil {
			return nil, err
		}
		results = rs
	}

	if len(results) == 0 {
		return map[string]any{
			"answer":     "Tôi không tìm thấy thông tin liên quan trong cơ sở dữ liệu.",
			"sources":    []map[string]any{},
			"confidence": "low",
		}, nil
	}

	block, sources := buildSourceBlock(results)
	answer, err := h.answerFromBlock(ctx, block)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"answer":     answer,
		"sources":    sources,
		"confidence": confidence,
	}, nil
}

func (h *UseRAGContext) resolveByIDs(ctx context.Context, ids []string) ([]rag.Result, error) {
	out := make([]rag.Result, 0, len(ids))
	for _, id := range ids {
		payload, err := h.Index.Get(ctx, h.Collection, id)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			continue
		}
		out = append(out, rag.Result{
			ChunkID:     id,
			SourceID:    payload["source_id"],
			Content:     payload["content"],
			SourceTitle: payload["source_title"],
			SourceURL:   payload["source_url"],
		})
	}
	return out, nil
}

func buildSourceBlock(results []rag.Result) (string, []map[string]any) {
	var b strings.Builder
	sources := make([]map[string]any, 0, len(results))
	for i, r := range results {
		title := r.SourceTitle
		if title == "" {
			title = r.SourceID
		}
		fmt.Fprintf(&b, "[%d] (%s) %s\n\n", i+1, title, r.Content)
		sources = append(sources, map[string]any{
			"source_type":     string(domain.SourceDocument),
			"document_id":      r.SourceID,
			"title":            title,
			"chunk_text":       r.Content,
			"relevance_score":  r.Score,
		})
	}
	return b.String(), sources
}

func (h *UseRAGContext) answerFromBlock(ctx context.Context, block string) (string, error) {
	msgs := []llm.Message{
		{Role: "system", Content: "Answer strictly using only the numbered source block below. If the answer is not contained in it, say you don't know. Cite sources as [1], [2], etc."},
		{Role: "user", Content: block},
	}
	resp, err := h.Provider.Chat(ctx, msgs, nil, h.Model)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
