package resolver

import (
	"context"
	"testing"

	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
	"university-query-engine/internal/vectorindex"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vec
	}
	return out, nil
}
func (s *stubEmbedder) Name() string        { return "stub" }
func (s *stubEmbedder) Dimension() int      { return len(s.vec) }
func (s *stubEmbedder) Ping(context.Context) error { return nil }

type stubIndex struct {
	hits []vectorindex.SearchHit
	err  error
}

func (s *stubIndex) EnsureCollection(context.Context, string, int, string) error { return nil }
func (s *stubIndex) Upsert(context.Context, string, []domain.VectorRecord) error {
	return nil
}
func (s *stubIndex) Search(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]vectorindex.SearchHit, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}
func (s *stubIndex) Get(context.Context, string, string) (map[string]string, error) { return nil, nil }
func (s *stubIndex) UpdatePayload(context.Context, string, string, map[string]string) error {
	return nil
}
func (s *stubIndex) DeleteIDs(context.Context, string, []string) error        { return nil }
func (s *stubIndex) DeleteByFilter(context.Context, string, map[string]string) error { return nil }
func (s *stubIndex) Scroll(context.Context, string, string, int, map[string]string) ([]vectorindex.ScrollRecord, string, error) {
	return nil, "", nil
}
func (s *stubIndex) ListCollections(context.Context) ([]string, error)        { return nil, nil }
func (s *stubIndex) Health(context.Context) error                             { return nil }
func (s *stubIndex) Close() error                                             { return nil }

func testConfig() config.ResolverConfig {
	return config.ResolverConfig{MaxCandidates: 5, SummaryWordLimit: 80, SummaryInputChars: 4000, FallbackChars: 500}
}

func TestSummarizeFallsBackOnEmptyResponse(t *testing.T) {
	provider := &llm.Fake{Responses: []llm.Message{{Role: "assistant", Content: ""}}}
	r := New(&stubEmbedder{}, &stubIndex{}, provider, "qa", "reasoning", testConfig())

	summary := r.summarize(context.Background(), "Nội dung thông báo gốc dùng làm fallback.")
	if summary != "Nội dung thông báo gốc dùng làm fallback." {
		t.Fatalf("expected fallback to raw content, got %q", summary)
	}
}

func TestSummarizeUsesLLMResponseWhenPresent(t *testing.T) {
	provider := &llm.Fake{Responses: []llm.Message{{Role: "assistant", Content: "Tóm tắt ngắn gọn."}}}
	r := New(&stubEmbedder{}, &stubIndex{}, provider, "qa", "reasoning", testConfig())

	summary := r.summarize(context.Background(), "nội dung dài")
	if summary != "Tóm tắt ngắn gọn." {
		t.Fatalf("expected LLM summary, got %q", summary)
	}
}

func TestSearchCandidatesCollapsesToOnePerSource(t *testing.T) {
	hits := []vectorindex.SearchHit{
		{ID: "c1", Score: 0.9, Payload: map[string]string{"source_id": "doc-1", "source_title": "A", "content": "x"}},
		{ID: "c2", Score: 0.95, Payload: map[string]string{"source_id": "doc-1", "source_title": "A", "content": "y"}},
		{ID: "c3", Score: 0.5, Payload: map[string]string{"source_id": "doc-2", "source_title": "B", "content": "z"}},
	}
	r := New(&stubEmbedder{vec: []float32{0.1, 0.2}}, &stubIndex{hits: hits}, &llm.Fake{}, "qa", "reasoning", testConfig())

	candidates := r.searchCandidates(context.Background(), "title", "summary", "default")
	if len(candidates) != 2 {
		t.Fatalf("expected 2 distinct source candidates, got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].ID != "doc-1" || candidates[0].Score != 0.95 {
		t.Fatalf("expected doc-1's higher-scoring hit to win, got %+v", candidates[0])
	}
}

func TestSearchCandidatesReturnsEmptyOnEmbedFailure(t *testing.T) {
	r := New(&stubEmbedder{err: errStub{}}, &stubIndex{}, &llm.Fake{}, "qa", "reasoning", testConfig())
	candidates := r.searchCandidates(context.Background(), "title", "summary", "default")
	if candidates != nil {
		t.Fatalf("expected nil candidates on embed failure, got %+v", candidates)
	}
}

type errStub struct{}

func (errStub) Error() string { return "embed failed" }

func TestClassifyMapsActionsCorrectly(t *testing.T) {
	cases := []struct {
		raw    string
		action Action
	}{
		{`{"action": 1, "reason": "mới", "updated_id": null}`, ActionNew},
		{`{"action": 0, "reason": "không liên quan", "updated_id": null}`, ActionUnrelated},
		{`{"action": 2, "reason": "cập nhật", "updated_id": "doc-9"}`, ActionUpdate},
	}
	for _, c := range cases {
		provider := &llm.Fake{Responses: []llm.Message{{Role: "assistant", Content: c.raw}}}
		r := New(&stubEmbedder{}, &stubIndex{}, provider, "qa", "reasoning", testConfig())
		action, _, _ := r.classify(context.Background(), "title", "summary", nil)
		if action != c.action {
			t.Fatalf("case %q: expected action %d, got %d", c.raw, c.action, action)
		}
	}
}

func TestClassifyDefaultsToNewOnMalformedJSON(t *testing.T) {
	provider := &llm.Fake{Responses: []llm.Message{{Role: "assistant", Content: "not json at all"}}}
	r := New(&stubEmbedder{}, &stubIndex{}, provider, "qa", "reasoning", testConfig())
	action, reason, updatedID := r.classify(context.Background(), "title", "summary", nil)
	if action != ActionNew || reason != "" || updatedID != "" {
		t.Fatalf("expected default-new on malformed JSON, got action=%d reason=%q updatedID=%q", action, reason, updatedID)
	}
}

func TestClassifyExtractsUpdatedIDOnUpdate(t *testing.T) {
	provider := &llm.Fake{Responses: []llm.Message{{Role: "assistant", Content: `{"action":2,"reason":"same event","updated_id":"doc-42"}`}}}
	r := New(&stubEmbedder{}, &stubIndex{}, provider, "qa", "reasoning", testConfig())
	action, reason, updatedID := r.classify(context.Background(), "title", "summary", nil)
	if action != ActionUpdate || updatedID != "doc-42" || reason != "same event" {
		t.Fatalf("unexpected result: action=%d reason=%q updatedID=%q", action, reason, updatedID)
	}
}

func TestResolveEndToEndNewDocument(t *testing.T) {
	provider := &llm.Fake{Responses: []llm.Message{
		{Role: "assistant", Content: "Thông báo mới về học bổng."},
		{Role: "assistant", Content: `{"action":1,"reason":"mới","updated_id":null}`},
	}}
	r := New(&stubEmbedder{vec: []float32{0.1}}, &stubIndex{}, provider, "qa", "reasoning", testConfig())

	result := r.Resolve(context.Background(), Input{Title: "Học bổng 2026", Content: "Nội dung...", Collection: "default"})
	if result.Action != ActionNew {
		t.Fatalf("expected new action, got %+v", result)
	}
	if result.Summary != "Thông báo mới về học bổng." {
		t.Fatalf("expected summary carried through, got %q", result.Summary)
	}
}
