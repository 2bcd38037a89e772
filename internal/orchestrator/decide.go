package orchestrator

import (
	"university-query-engine/internal/domain"
	"university-query-engine/internal/intent"
)

// decision is S4's output: the primary tool to run and its arguments.
type decision struct {
	Primary domain.ToolType
	Args    map[string]any
}

// formTemplateCategory is the chunker Category convention a document
// ingested as a fillable form template carries, letting S4 recognize a
// "top chunk is form template" hit without a dedicated document flag.
const formTemplateCategory = "form_template"

// decide is S4: the policy table, first matching row wins (§4.9).
func (o *Orchestrator) decide(req Request, cls intent.Result, vref domain.VectorReference, retrievals []retrieval) decision {
	switch {
	case req.AttachedImage != nil:
		return decision{Primary: domain.ToolAnalyzeImage, Args: map[string]any{
			"image_bytes":  req.AttachedImage.Bytes,
			"image_format": req.AttachedImage.Format,
			"question":     req.Query,
		}}

	case cls.Intent == intent.IntentFormRequest || topChunkIsFormTemplate(retrievals, vref):
		return decision{Primary: domain.ToolFillForm, Args: map[string]any{
			"form_type":    deriveFormType(retrievals),
			"user_context": req.UserID,
		}}

	case cls.Intent == intent.IntentFileRequest && anySourceHasArtifacts(retrievals):
		return decision{Primary: domain.ToolUseRAGContext, Args: map[string]any{
			"chunk_ids":  chunkIDs(retrievals),
			"confidence": string(domain.QualityFromScore(vref.TopScore)),
		}}

	case cls.Intent == intent.IntentClarificationNeeded:
		return decision{Primary: domain.ToolClarify, Args: map[string]any{
			"clarification_type": "ambiguous_topic",
			"topic":              req.Query,
		}}

	case vref.HasHighConfidence:
		return decision{Primary: domain.ToolUseRAGContext, Args: map[string]any{
			"chunk_ids":  chunkIDs(retrievals),
			"confidence": "high",
		}}

	case vref.TopScore > 0 && vref.TopScore < 0.5:
		return decision{Primary: domain.ToolSearchWeb, Args: map[string]any{
			"query":  req.Query,
			"reason": "low-confidence retrieval against the knowledge base",
		}}

	case vref.TopScore == 0 && cls.Intent == intent.IntentGeneralAnswer:
		return decision{Primary: domain.ToolAnswerDirectly, Args: map[string]any{
			"query":  req.Query,
			"reason": "no internal knowledge base match, query reads as general knowledge",
		}}

	default:
		return decision{Primary: domain.ToolUseRAGContext, Args: map[string]any{
			"query":      req.Query,
			"chunk_ids":  chunkIDs(retrievals),
			"confidence": "low",
		}}
	}
}

func topChunkIsFormTemplate(retrievals []retrieval, vref domain.VectorReference) bool {
	if len(retrievals) == 0 || vref.TopScore < formScoreThreshold {
		return false
	}
	return retrievals[0].Category == formTemplateCategory
}

func anySourceHasArtifacts(retrievals []retrieval) bool {
	for _, r := range retrievals {
		if r.Document != nil && len(r.Document.Artifacts) > 0 {
			return true
		}
	}
	return false
}

func chunkIDs(retrievals []retrieval) []string {
	ids := make([]string, len(retrievals))
	for i, r := range retrievals {
		ids[i] = r.ChunkID
	}
	return ids
}

// deriveFormType reads the top chunk's source_title/category for the form
// template's declared type; falls back to the generic template.
func deriveFormType(retrievals []retrieval) string {
	if len(retrievals) == 0 {
		return "general_request"
	}
	if retrievals[0].Document != nil {
		if ft, ok := retrievals[0].Document.Metadata["form_type"]; ok && ft != "" {
			return ft
		}
	}
	return "general_request"
}
