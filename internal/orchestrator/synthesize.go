package orchestrator

import (
	"strings"
	"time"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/intent"
)

// synthesize is S6: combine the primary tool's output into the final
// user-facing answer, per the precedence rules in §4.9 — form answers
// take the body, web results are labeled/cited, RAG sources are numbered
// to match the citation markers the use_rag_context handler already wrote,
// and clarifications pass through verbatim.
func (o *Orchestrator) synthesize(req Request, d decision, call domain.ToolCall, cls intent.Result, artifacts []domain.ArtifactRef) domain.QueryResponse {
	content, sources := contentAndSources(d.Primary, call.Result)

	resp := domain.QueryResponse{
		Content:   content,
		Intent:    domain.Intent(cls.Intent),
		Artifacts: artifacts,
		CreatedAt: time.Now(),
	}
	if req.IncludeSources {
		resp.Sources = sources
	}

	hasFillableForm := d.Primary == domain.ToolFillForm
	for _, a := range artifacts {
		if a.IsFillable {
			hasFillableForm = true
		}
	}

	resp.Metadata = domain.ResponseMetadata{
		ModelUsed:       o.ModelName,
		SourcesCount:    len(sources),
		ArtifactsCount:  len(artifacts),
		HasFillableForm: hasFillableForm,
	}
	return resp
}

func contentAndSources(primary domain.ToolType, result map[string]any) (string, []domain.Source) {
	switch primary {
	case domain.ToolFillForm:
		return stringField(result, "form_markdown"), nil

	case domain.ToolClarify:
		return stringField(result, "clarification_question"), nil

	case domain.ToolAnswerDirectly:
		return stringField(result, "answer"), []domain.Source{{SourceType: domain.SourceDirectKnowledge}}

	case domain.ToolSearchWeb:
		return searchWebContent(result), webSources(result)

	case domain.ToolAnalyzeImage:
		return analyzeImageContent(result), nil

	case domain.ToolUseRAGContext:
		fallthrough
	default:
		return stringField(result, "answer"), ragSources(result)
	}
}

func searchWebContent(result map[string]any) string {
	summary := stringField(result, "summary")
	if summary == "" {
		return "Không tìm thấy kết quả tìm kiếm liên quan trên web."
	}
	var b strings.Builder
	b.WriteString("Kết quả tìm kiếm trên web:\n\n")
	b.WriteString(summary)
	return b.String()
}

func webSources(result map[string]any) []domain.Source {
	raw, _ := result["results"].([]map[string]any)
	sources := make([]domain.Source, 0, len(raw))
	for _, r := range raw {
		sources = append(sources, domain.Source{
			SourceType: domain.SourceWebSearch,
			Title:      stringField(r, "title"),
			URL:        stringField(r, "url"),
		})
	}
	return sources
}

func ragSources(result map[string]any) []domain.Source {
	raw, _ := result["sources"].([]map[string]any)
	sources := make([]domain.Source, 0, len(raw))
	for _, s := range raw {
		sources = append(sources, domain.Source{
			SourceType:     domain.SourceDocument,
			DocumentID:     stringField(s, "document_id"),
			Title:          stringField(s, "title"),
			ChunkText:      stringField(s, "chunk_text"),
			RelevanceScore: floatField(s, "relevance_score"),
		})
	}
	return sources
}

func analyzeImageContent(result map[string]any) string {
	if response := stringField(result, "response"); response != "" {
		return response
	}
	return stringField(result, "description")
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	f, _ := m[key].(float64)
	return f
}
