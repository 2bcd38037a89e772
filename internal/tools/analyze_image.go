package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/rag"
)

// AnalyzeImage runs a vision model over an attached image to produce a
// description, then feeds description+question back through the RAG
// Engine so the answer is grounded in the knowledge base.
type AnalyzeImage struct {
	Provider llm.Provider
	Model    string
	RAG      *rag.Engine
}

func (h *AnalyzeImage) ToolType() domain.ToolType { return domain.ToolAnalyzeImage }

func (h *AnalyzeImage) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	describer, ok := h.Provider.(llm.VisionDescriber)
	if !ok {
		return nil, fmt.Errorf("analyze_image: active provider %q does not support image input", h.Provider.Name())
	}

	imageB64, mimeType, err := decodeImageArg(args)
	if err != nil {
		return nil, err
	}
	question := argString(args, "question")

	prompt := "Describe this image in detail. Extract any visible text verbatim. List notable objects. " +
		"Respond as JSON: {\"description\": ..., \"extracted_text\": ..., \"detected_objects\": [...]}."
	if question != "" {
		prompt += " Also specifically address: " + question
	}

	resp, err := describer.ChatWithImageAttachment(ctx, []llm.Message{{Role: "user", Content: prompt}}, mimeType, imageB64, nil, h.Model)
	if err != nil {
		return nil, err
	}

	description, extractedText, objects := parseVisionResponse(resp.Content)

	result := map[string]any{
		"description":      description,
		"extracted_text":   extractedText,
		"detected_objects": objects,
	}

	if h.RAG != nil {
		query := strings.TrimSpace(description + " " + question)
		if query != "" {
			rc, err := h.RAG.BuildContext(ctx, query, rag.SearchConfig{})
			if err == nil {
				result["response"] = rc.Text
				docs := make([]string, 0, len(rc.Results))
				for _, r := range rc.Results {
					docs = append(docs, r.SourceID)
				}
				result["related_documents"] = docs
			}
		}
	}

	return result, nil
}

func decodeImageArg(args map[string]any) (base64Data, mimeType string, err error) {
	mimeType = argString(args, "image_format")
	if mimeType == "" {
		mimeType = "image/jpeg"
	} else if !strings.Contains(mimeType, "/") {
		mimeType = "image/" + mimeType
	}

	switch v := args["image_bytes"].(type) {
	case string:
		return v, mimeType, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), mimeType, nil
	default:
		return "", "", fmt.Errorf("analyze_image: image_bytes is required")
	}
}

// parseVisionResponse tolerates surrounding prose around the requested
// JSON object, the way the orchestrator's other JSON-extraction paths do.
func parseVisionResponse(content string) (description, extractedText string, objects []string) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content, "", nil
	}

	var parsed struct {
		Description     string   `json:"description"`
		ExtractedText   string   `json:"extracted_text"`
		DetectedObjects []string `json:"detected_objects"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return content, "", nil
	}
	return parsed.Description, parsed.ExtractedText, parsed.DetectedObjects
}
