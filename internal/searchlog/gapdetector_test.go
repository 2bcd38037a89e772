package searchlog

import (
	"context"
	"reflect"
	"testing"
	"time"

	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
)

type fakeRow struct {
	pattern  string
	count    uint64
	avgScore float64
	samples  []string
	lastTs   time.Time
}

type fakeRows struct {
	data []fakeRow
	i    int
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	*dest[0].(*string) = row.pattern
	*dest[1].(*uint64) = row.count
	*dest[2].(*float64) = row.avgScore
	*dest[3].(*[]string) = row.samples
	*dest[4].(*time.Time) = row.lastTs
	return nil
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

type memGapStore struct {
	gaps map[string]domain.KnowledgeGap
	put  []domain.KnowledgeGap
}

func newMemGapStore() *memGapStore {
	return &memGapStore{gaps: map[string]domain.KnowledgeGap{}}
}

func (m *memGapStore) GetKnowledgeGapByTopic(ctx context.Context, topic string) (domain.KnowledgeGap, bool, error) {
	g, ok := m.gaps[topic]
	return g, ok, nil
}

func (m *memGapStore) PutKnowledgeGap(ctx context.Context, g domain.KnowledgeGap) error {
	m.gaps[g.Topic] = g
	m.put = append(m.put, g)
	return nil
}

func TestDetectGapsIsNoOpWithoutCollaborators(t *testing.T) {
	d := NewGapDetector(nil, newMemGapStore(), config.GapDetectorConfig{})
	n, err := d.DetectGaps(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected no-op with nil conn, got %d / %v", n, err)
	}
}

func TestDetectGapsCreatesNewGap(t *testing.T) {
	now := time.Now()
	conn := &fakeConn{rows: &fakeRows{data: []fakeRow{
		{pattern: "hoc phi bao nhieu", count: 5, avgScore: 0.3, samples: []string{"học phí bao nhiêu", "hoc phi"}, lastTs: now},
	}}}
	store := newMemGapStore()
	d := NewGapDetector(conn, store, config.GapDetectorConfig{MinQueries: 3, WindowDays: 30, MaxScore: 0.5})

	n, err := d.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one gap raised, got %d", n)
	}
	gap, ok := store.gaps["hoc phi bao nhieu"]
	if !ok {
		t.Fatalf("expected gap stored under its pattern")
	}
	if gap.Status != domain.GapDetected {
		t.Fatalf("expected new gap status=detected, got %q", gap.Status)
	}
	if gap.QueryCount != 5 || gap.AvgScore != 0.3 {
		t.Fatalf("expected count/avg carried from aggregate, got %+v", gap)
	}
	wantSamples := []string{"học phí bao nhiêu", "hoc phi"}
	if !reflect.DeepEqual(gap.SampleQueries, wantSamples) {
		t.Fatalf("expected sample queries %v, got %v", wantSamples, gap.SampleQueries)
	}
}

func TestDetectGapsExtendsExistingGapAndDedupsSamples(t *testing.T) {
	now := time.Now()
	existingFirst := now.Add(-48 * time.Hour)
	store := newMemGapStore()
	store.gaps["hoc phi bao nhieu"] = domain.KnowledgeGap{
		ID:              "existing-id",
		Topic:           "hoc phi bao nhieu",
		SampleQueries:   []string{"hoc phi"},
		QueryCount:      2,
		AvgScore:        0.4,
		Status:          domain.GapTodo,
		FirstDetectedAt: existingFirst,
	}
	conn := &fakeConn{rows: &fakeRows{data: []fakeRow{
		{pattern: "hoc phi bao nhieu", count: 6, avgScore: 0.25, samples: []string{"hoc phi", "học phí mới"}, lastTs: now},
	}}}
	d := NewGapDetector(conn, store, config.GapDetectorConfig{MinQueries: 3, WindowDays: 30, MaxScore: 0.5})

	_, err := d.DetectGaps(context.Background())
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	gap := store.gaps["hoc phi bao nhieu"]
	if gap.ID != "existing-id" {
		t.Fatalf("expected existing id preserved, got %q", gap.ID)
	}
	if gap.Status != domain.GapTodo {
		t.Fatalf("expected existing status preserved, got %q", gap.Status)
	}
	if !gap.FirstDetectedAt.Equal(existingFirst) {
		t.Fatalf("expected FirstDetectedAt preserved, got %v", gap.FirstDetectedAt)
	}
	if len(gap.SampleQueries) != 2 {
		t.Fatalf("expected deduped sample queries (cap 2 distinct), got %v", gap.SampleQueries)
	}
}
