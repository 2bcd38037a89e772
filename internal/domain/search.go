package domain

import "time"

// ResultQuality buckets a search's top score per §3 thresholds.
type ResultQuality string

const (
	QualityHigh   ResultQuality = "high"
	QualityMedium ResultQuality = "medium"
	QualityLow    ResultQuality = "low"
	QualityNone   ResultQuality = "none"
)

// QualityFromScore buckets a top score into a ResultQuality per spec thresholds:
// high >= 0.75, medium >= 0.5, low > 0, none == 0.
func QualityFromScore(topScore float64) ResultQuality {
	switch {
	case topScore >= 0.75:
		return QualityHigh
	case topScore >= 0.5:
		return QualityMedium
	case topScore > 0:
		return QualityLow
	default:
		return QualityNone
	}
}

// SearchResultRef is one retrieved hit recorded in a Search Log.
type SearchResultRef struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// SearchLog records one retrieval call for later gap analysis.
type SearchLog struct {
	Query           string             `json:"query"`
	UserID          string             `json:"user_id,omitempty"`
	SessionID       string             `json:"session_id,omitempty"`
	Results         []SearchResultRef  `json:"results"`
	TopScore        float64            `json:"top_score"`
	ResultCount     int                `json:"result_count"`
	ResultQuality   ResultQuality      `json:"result_quality"`
	UsedWebFallback bool               `json:"used_web_fallback"`
	Collection      string             `json:"collection"`
	SearchLatencyMS int64              `json:"search_latency_ms"`
	Timestamp       time.Time          `json:"timestamp"`
}

// GapStatus is the triage status of a Knowledge Gap.
type GapStatus string

const (
	GapDetected    GapStatus = "detected"
	GapTodo        GapStatus = "todo"
	GapInProgress  GapStatus = "in_progress"
	GapResolved    GapStatus = "resolved"
	GapDismissed   GapStatus = "dismissed"
)

// KnowledgeGap is a topic where repeated low-confidence retrievals suggest
// missing content.
type KnowledgeGap struct {
	ID               string    `json:"id"`
	Topic            string    `json:"topic"`
	SampleQueries    []string  `json:"sample_queries"` // <=5, deduplicated
	QueryCount       int       `json:"query_count"`
	AvgScore         float64   `json:"avg_score"`
	Status           GapStatus `json:"status"`
	Priority         float64   `json:"priority"`
	FirstDetectedAt  time.Time `json:"first_detected_at"`
	LastQueryAt      time.Time `json:"last_query_at"`
	ResolutionNotes  string    `json:"resolution_notes,omitempty"`
}

// GapPriority derives a knowledge gap's priority from its query count and
// average score, per §4.15: priority = f(query_count, 1-avg_score).
func GapPriority(queryCount int, avgScore float64) float64 {
	p := float64(queryCount) * (1 - avgScore)
	if p > 10 {
		p = 10
	}
	if p < 0 {
		p = 0
	}
	return p
}
