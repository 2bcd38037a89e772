package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"university-query-engine/internal/chunker"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/embedding"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/rag"
	"university-query-engine/internal/vectorindex"
	"university-query-engine/internal/web"
)

// fakeProvider is a minimal llm.Provider double for handler tests.
type fakeProvider struct {
	reply string
}

func (f *fakeProvider) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	return llm.Message{Role: "assistant", Content: f.reply}, nil
}
func (f *fakeProvider) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	return nil
}
func (f *fakeProvider) Name() string { return "fake" }

// fakeIndex is a minimal in-memory vectorindex.Index for tests needing Get.
type fakeIndex struct {
	records map[string]map[string]string
}

func newFakeIndex() *fakeIndex { return &fakeIndex{records: map[string]map[string]string{}} }

func (f *fakeIndex) EnsureCollection(ctx context.Context, collection string, dimension int, metric string) error {
	return nil
}
func (f *fakeIndex) Upsert(ctx context.Context, collection string, records []domain.VectorRecord) error {
	return nil
}
func (f *fakeIndex) Search(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]vectorindex.SearchHit, error) {
	return nil, nil
}
func (f *fakeIndex) Get(ctx context.Context, collection, id string) (map[string]string, error) {
	return f.records[id], nil
}
func (f *fakeIndex) UpdatePayload(ctx context.Context, collection, id string, fields map[string]string) error {
	return nil
}
func (f *fakeIndex) DeleteIDs(ctx context.Context, collection string, ids []string) error { return nil }
func (f *fakeIndex) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error {
	return nil
}
func (f *fakeIndex) Scroll(ctx context.Context, collection, cursor string, limit int, filter map[string]string) ([]vectorindex.ScrollRecord, string, error) {
	return nil, "", nil
}
func (f *fakeIndex) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeIndex) Health(ctx context.Context) error                      { return nil }
func (f *fakeIndex) Close() error                                          { return nil }

func testRAGEngine() *rag.Engine {
	idx := &recordingRAGIndex{}
	gw := embedding.NewCachingGateway(embedding.NewDeterministicProvider(16, 1), nil, time.Minute, 4)
	return rag.New(chunker.SimpleChunker{}, gw, idx, config.RAGConfig{
		DefaultCollection: "default", TopK: 5, ScoreThreshold: 0, Deduplicate: true,
		DedupCapPerSource: 2, SearchType: "similarity", ContextCharBudget: 3000 * 4,
	})
}

// recordingRAGIndex always returns zero hits; enough for tools that only
// exercise the "no results" branch or the chunk_ids resolution path.
type recordingRAGIndex struct{}

func (recordingRAGIndex) EnsureCollection(ctx context.Context, collection string, dimension int, metric string) error {
	return nil
}
func (recordingRAGIndex) Upsert(ctx context.Context, collection string, records []domain.VectorRecord) error {
	return nil
}
func (recordingRAGIndex) Search(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]vectorindex.SearchHit, error) {
	return nil, nil
}
func (recordingRAGIndex) Get(ctx context.Context, collection, id string) (map[string]string, error) {
	return nil, nil
}
func (recordingRAGIndex) UpdatePayload(ctx context.Context, collection, id string, fields map[string]string) error {
	return nil
}
func (recordingRAGIndex) DeleteIDs(ctx context.Context, collection string, ids []string) error {
	return nil
}
func (recordingRAGIndex) DeleteByFilter(ctx context.Context, collection string, filter map[string]string) error {
	return nil
}
func (recordingRAGIndex) Scroll(ctx context.Context, collection, cursor string, limit int, filter map[string]string) ([]vectorindex.ScrollRecord, string, error) {
	return nil, "", nil
}
func (recordingRAGIndex) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (recordingRAGIndex) Health(ctx context.Context) error                      { return nil }
func (recordingRAGIndex) Close() error                                          { return nil }

func TestUseRAGContextReturnsLowConfidenceFallbackWhenNoResults(t *testing.T) {
	h := &UseRAGContext{RAG: testRAGEngine(), Provider: &fakeProvider{reply: "unused"}, Model: "m"}
	out, err := h.Execute(context.Background(), map[string]any{"query": "tuition deadlines"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["confidence"] != "low" {
		t.Fatalf("expected low confidence fallback, got %+v", out)
	}
}

func TestUseRAGContextResolvesByChunkIDs(t *testing.T) {
	idx := newFakeIndex()
	idx.records["c1"] = map[string]string{"source_id": "doc-1", "content": "Library hours are 8am-10pm.", "source_title": "Library"}
	h := &UseRAGContext{Index: idx, Collection: "default", Provider: &fakeProvider{reply: "Library hours are 8am-10pm. [1]"}, Model: "m"}
	out, err := h.Execute(context.Background(), map[string]any{"chunk_ids": []any{"c1"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	sources, ok := out["sources"].([]map[string]any)
	if !ok || len(sources) != 1 {
		t.Fatalf("expected one source, got %+v", out["sources"])
	}
	if sources[0]["document_id"] != "doc-1" {
		t.Fatalf("unexpected source: %+v", sources[0])
	}
}

func TestUseRAGContextRequiresChunkIDsOrQuery(t *testing.T) {
	h := &UseRAGContext{RAG: testRAGEngine()}
	if _, err := h.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error when neither chunk_ids nor query supplied")
	}
}

type fakeSearcher struct {
	results []web.SearchResult
}

func (f fakeSearcher) Search(ctx context.Context, query string, domainFilter string) ([]web.SearchResult, error) {
	return f.results, nil
}

func TestSearchWebReturnsResultsAndSummary(t *testing.T) {
	h := &SearchWeb{Searcher: fakeSearcher{results: []web.SearchResult{
		{Title: "Admissions", Snippet: "How to apply", URL: "https://uni.edu/apply"},
	}}}
	out, err := h.Execute(context.Background(), map[string]any{"query": "how to apply"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	results := out["results"].([]map[string]any)
	if len(results) != 1 || results[0]["url"] != "https://uni.edu/apply" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchWebRequiresQuery(t *testing.T) {
	h := &SearchWeb{Searcher: fakeSearcher{}}
	if _, err := h.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error when query missing")
	}
}

func TestAnswerDirectlyPrefersPreAnswer(t *testing.T) {
	h := &AnswerDirectly{Provider: &fakeProvider{reply: "should not be used"}}
	out, err := h.Execute(context.Background(), map[string]any{"pre_answer": "The library opens at 8am.", "reason": "classified as general knowledge"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["answer"] != "The library opens at 8am." {
		t.Fatalf("expected pre_answer passthrough, got %+v", out)
	}
}

func TestAnswerDirectlyFallsBackToLLM(t *testing.T) {
	h := &AnswerDirectly{Provider: &fakeProvider{reply: "Generated answer"}, Model: "m"}
	out, err := h.Execute(context.Background(), map[string]any{"query": "what is photosynthesis"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["answer"] != "Generated answer" {
		t.Fatalf("expected LLM-generated answer, got %+v", out)
	}
}

type fakeProfiles struct {
	fields map[string]string
}

func (f fakeProfiles) Fields(ctx context.Context, userID string) (map[string]string, error) {
	return f.fields, nil
}

func TestFillFormPreFillsKnownFieldsAndReportsMissing(t *testing.T) {
	h := &FillForm{Profiles: fakeProfiles{fields: map[string]string{
		"full_name": "Nguyen Van A", "student_id": "SV001",
	}}}
	out, err := h.Execute(context.Background(), map[string]any{
		"form_type":    "leave_request",
		"user_context": "user-1",
		"additional_info": map[string]any{
			"from_date": "2026-08-01", "to_date": "2026-08-03", "reason": "ốm",
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	markdown := out["form_markdown"].(string)
	if !containsAll(markdown, "Nguyen Van A", "SV001", "2026-08-01", "ốm") {
		t.Fatalf("expected all known fields substituted, got:\n%s", markdown)
	}
	missing := out["missing_fields"].([]string)
	if len(missing) != 1 || missing[0] != "class" {
		t.Fatalf("expected only class missing, got %+v", missing)
	}
}

func TestFillFormRejectsUnknownFormType(t *testing.T) {
	h := &FillForm{}
	if _, err := h.Execute(context.Background(), map[string]any{"form_type": "nonexistent"}); err == nil {
		t.Fatalf("expected error for unknown form_type")
	}
}

func TestClarifyQuestionPassesPromptVerbatim(t *testing.T) {
	h := &ClarifyQuestion{}
	out, err := h.Execute(context.Background(), map[string]any{
		"clarification_prompt": "Bạn muốn hỏi về học phí hay học bổng?",
		"suggestions":          []any{"học phí", "học bổng"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["clarification_question"] != "Bạn muốn hỏi về học phí hay học bổng?" {
		t.Fatalf("expected verbatim passthrough, got %+v", out)
	}
}

func TestClarifyQuestionBuildsFromType(t *testing.T) {
	h := &ClarifyQuestion{}
	out, err := h.Execute(context.Background(), map[string]any{
		"clarification_type": "time_period",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["clarification_type"] != "time_period" {
		t.Fatalf("unexpected type: %+v", out)
	}
}

func TestRegistryDispatchesToRegisteredHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(&AnswerDirectly{Provider: &fakeProvider{reply: "ok"}, Model: "m"})
	if !r.Has(domain.ToolAnswerDirectly) {
		t.Fatalf("expected handler registered")
	}
	out, err := r.Dispatch(context.Background(), domain.ToolAnswerDirectly, map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out["answer"] != "ok" {
		t.Fatalf("unexpected dispatch result: %+v", out)
	}
}

func TestRegistryDispatchErrorsForUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Dispatch(context.Background(), domain.ToolFillForm, nil); err == nil {
		t.Fatalf("expected error dispatching unregistered tool")
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
