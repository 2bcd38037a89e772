package personalization

import (
	"context"
	"testing"
	"time"

	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/llm"
)

type memStore struct {
	profiles map[string]domain.StudentProfile
}

func newMemStore() *memStore { return &memStore{profiles: map[string]domain.StudentProfile{}} }

func (m *memStore) GetProfile(ctx context.Context, userID string) (domain.StudentProfile, bool, error) {
	p, ok := m.profiles[userID]
	return p, ok, nil
}

func (m *memStore) PutProfile(ctx context.Context, p domain.StudentProfile) error {
	m.profiles[p.UserID] = p
	return nil
}

func testCfg() config.PersonalizationConfig {
	return config.PersonalizationConfig{InterestHalfLifeDays: 30, MemoryExtractionConfidenceFloor: 0.6}
}

func TestGetOrCreateReturnsFreshProfileWhenMissing(t *testing.T) {
	svc := New(newMemStore(), testCfg())
	p, err := svc.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if p.UserID != "u1" {
		t.Fatalf("expected user id to be populated, got %+v", p)
	}
}

func TestDecayPrunesInterestsBelowFloor(t *testing.T) {
	svc := New(newMemStore(), testCfg())
	old := time.Now().Add(-60 * 24 * time.Hour) // two half-lives ago at 30-day H
	interests := []domain.TopicInterest{
		{Topic: "tuyển sinh", Score: 0.1, LastAccessed: old},
		{Topic: "học phí", Score: 0.9, LastAccessed: old},
	}
	decayed := svc.decay(interests, time.Now())
	for _, ti := range decayed {
		if ti.Topic == "tuyển sinh" {
			t.Fatalf("expected low-score old interest to be pruned, got %+v", decayed)
		}
	}
	found := false
	for _, ti := range decayed {
		if ti.Topic == "học phí" {
			found = true
			if ti.Score >= 0.9 {
				t.Fatalf("expected score to decay below original, got %f", ti.Score)
			}
		}
	}
	if !found {
		t.Fatalf("expected high-score interest to survive decay, got %+v", decayed)
	}
}

func TestRecordBumpsInterestAndCounter(t *testing.T) {
	store := newMemStore()
	svc := New(store, testCfg())
	ctx := context.Background()

	if err := svc.Record(ctx, "u1", domain.InteractionQuestion, "học phí", nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := svc.Record(ctx, "u1", domain.InteractionQuestion, "học phí", nil); err != nil {
		t.Fatalf("Record: %v", err)
	}

	p := store.profiles["u1"]
	if p.Counters[string(domain.InteractionQuestion)] != 2 {
		t.Fatalf("expected counter 2, got %+v", p.Counters)
	}
	if len(p.TopicsOfInterest) != 1 || p.TopicsOfInterest[0].InteractionCount != 2 {
		t.Fatalf("expected one interest bumped twice, got %+v", p.TopicsOfInterest)
	}
}

func TestRecordCapsTopicsOfInterestAtFive(t *testing.T) {
	store := newMemStore()
	svc := New(store, testCfg())
	ctx := context.Background()
	topics := []string{"a", "b", "c", "d", "e", "f"}
	for _, topic := range topics {
		if err := svc.Record(ctx, "u1", domain.InteractionTopicClick, topic, nil); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	p := store.profiles["u1"]
	if len(p.TopicsOfInterest) != domain.MaxTopicsOfInterest {
		t.Fatalf("expected %d topics, got %d", domain.MaxTopicsOfInterest, len(p.TopicsOfInterest))
	}
}

func TestFieldsReturnsOnlyNonEmptyProfileFields(t *testing.T) {
	store := newMemStore()
	store.profiles["u1"] = domain.StudentProfile{UserID: "u1", Name: "An", Email: "an@example.edu.vn"}
	svc := New(store, testCfg())

	fields, err := svc.Fields(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if fields["name"] != "An" || fields["email"] != "an@example.edu.vn" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if _, ok := fields["student_id"]; ok {
		t.Fatalf("expected empty student_id to be omitted, got %+v", fields)
	}
}

func TestExtractMemoryAppliesHighConfidenceDirectField(t *testing.T) {
	store := newMemStore()
	svc := New(store, testCfg())
	provider := &llm.Fake{Responses: []llm.Message{
		{Role: "assistant", Content: `Here you go: {"identity": {"major": {"value": "Công nghệ thông tin", "confidence": 0.9, "evidence": "nói rõ", "inferred": false}}}`},
	}}

	p := svc.ExtractMemory(context.Background(), provider, "m", "u1", "Mình học ngành Công nghệ thông tin", "Được rồi!", "", true)
	if p.Major != "Công nghệ thông tin" {
		t.Fatalf("expected major to be set, got %+v", p)
	}
	if p.FieldConfidences["major"].Confidence != 0.9 {
		t.Fatalf("expected field confidence recorded, got %+v", p.FieldConfidences)
	}
}

func TestExtractMemoryRejectsLowConfidenceInferredField(t *testing.T) {
	store := newMemStore()
	svc := New(store, testCfg())
	provider := &llm.Fake{Responses: []llm.Message{
		{Role: "assistant", Content: `{"identity": {"major": {"value": "Kinh tế", "confidence": 0.5, "evidence": "suy đoán", "inferred": true}}}`},
	}}

	p := svc.ExtractMemory(context.Background(), provider, "m", "u1", "...", "...", "", true)
	if p.Major != "" {
		t.Fatalf("expected low-confidence inferred field to be rejected, got %+v", p)
	}
}

func TestExtractMemoryRejectsInvalidEmailFormat(t *testing.T) {
	store := newMemStore()
	svc := New(store, testCfg())
	provider := &llm.Fake{Responses: []llm.Message{
		{Role: "assistant", Content: `{"identity": {"email": {"value": "not-an-email", "confidence": 0.9, "evidence": "x", "inferred": false}}}`},
	}}

	p := svc.ExtractMemory(context.Background(), provider, "m", "u1", "...", "...", "", true)
	if p.Email != "" {
		t.Fatalf("expected malformed email to be rejected, got %+v", p)
	}
}

func TestExtractMemoryDoesNotOverwriteWithoutHighEnoughConfidence(t *testing.T) {
	store := newMemStore()
	store.profiles["u1"] = domain.StudentProfile{
		UserID: "u1", Major: "Công nghệ thông tin",
		FieldConfidences: map[string]domain.FieldConfidence{"major": {Value: "Công nghệ thông tin", Confidence: 0.9}},
	}
	svc := New(store, testCfg())
	provider := &llm.Fake{Responses: []llm.Message{
		{Role: "assistant", Content: `{"identity": {"major": {"value": "Kinh tế", "confidence": 0.8, "evidence": "x", "inferred": false}}}`},
	}}

	p := svc.ExtractMemory(context.Background(), provider, "m", "u1", "...", "...", "", true)
	if p.Major != "Công nghệ thông tin" {
		t.Fatalf("expected existing high-confidence value to survive a sub-0.85 overwrite attempt, got %+v", p)
	}
}

func TestBuildContextAssemblesPromptAdditions(t *testing.T) {
	p := domain.StudentProfile{
		Name: "Lan", Level: domain.LevelFreshman, Major: "Toán", DetailLevel: domain.DetailBrief,
		TopicsOfInterest: []domain.TopicInterest{{Topic: "học bổng", Score: 0.5}},
	}
	pc := BuildContext(p)
	if pc.Greeting != "Xin chào, Lan!" {
		t.Fatalf("unexpected greeting: %q", pc.Greeting)
	}
	if pc.DetailLevel != domain.DetailBrief {
		t.Fatalf("expected detail level to pass through, got %s", pc.DetailLevel)
	}
	if len(pc.SuggestedRelatedTopics) != 1 || pc.SuggestedRelatedTopics[0] != "học bổng" {
		t.Fatalf("expected suggested topic, got %+v", pc.SuggestedRelatedTopics)
	}
	if pc.PromptAdditions == "" {
		t.Fatalf("expected non-empty prompt additions")
	}
}
