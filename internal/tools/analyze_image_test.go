package tools

import (
	"context"
	"testing"

	"university-query-engine/internal/llm"
)

// visionProvider implements both llm.Provider and llm.VisionDescriber.
type visionProvider struct {
	fakeProvider
	imageReply string
}

func (v *visionProvider) ChatWithImageAttachment(ctx context.Context, msgs []llm.Message, mimeType, base64Data string, tools []llm.ToolSchema, model string) (llm.Message, error) {
	return llm.Message{Role: "assistant", Content: v.imageReply}, nil
}

func TestAnalyzeImageParsesVisionJSONAndRunsRAG(t *testing.T) {
	h := &AnalyzeImage{
		Provider: &visionProvider{imageReply: `{"description": "A campus map showing the library.", "extracted_text": "LIBRARY", "detected_objects": ["map", "building"]}`},
		Model:    "vision-model",
		RAG:      testRAGEngine(),
	}
	out, err := h.Execute(context.Background(), map[string]any{
		"image_bytes":  "ZmFrZS1pbWFnZS1ieXRlcw==",
		"image_format": "png",
		"question":     "where is the library",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["description"] != "A campus map showing the library." {
		t.Fatalf("unexpected description: %+v", out)
	}
	if out["extracted_text"] != "LIBRARY" {
		t.Fatalf("unexpected extracted_text: %+v", out)
	}
	objects, ok := out["detected_objects"].([]string)
	if !ok || len(objects) != 2 {
		t.Fatalf("unexpected detected_objects: %+v", out["detected_objects"])
	}
}

func TestAnalyzeImageRequiresImageBytes(t *testing.T) {
	h := &AnalyzeImage{Provider: &visionProvider{}}
	if _, err := h.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error when image_bytes missing")
	}
}

func TestAnalyzeImageErrorsWhenProviderLacksVision(t *testing.T) {
	h := &AnalyzeImage{Provider: &fakeProvider{}}
	_, err := h.Execute(context.Background(), map[string]any{"image_bytes": "Zm9v"})
	if err == nil {
		t.Fatalf("expected error when provider does not support image input")
	}
}

func TestAnalyzeImageFallsBackToRawContentOnNonJSONReply(t *testing.T) {
	h := &AnalyzeImage{Provider: &visionProvider{imageReply: "This is a photo of a building."}}
	out, err := h.Execute(context.Background(), map[string]any{"image_bytes": "Zm9v"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["description"] != "This is a photo of a building." {
		t.Fatalf("expected raw content fallback, got %+v", out)
	}
}
