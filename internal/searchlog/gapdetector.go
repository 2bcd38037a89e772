package searchlog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
)

// GapStore is the Knowledge Gap persistence port, satisfied directly by
// *docstore.Store.
type GapStore interface {
	GetKnowledgeGapByTopic(ctx context.Context, topic string) (domain.KnowledgeGap, bool, error)
	PutKnowledgeGap(ctx context.Context, g domain.KnowledgeGap) error
}

// GapDetector runs the periodic aggregation pass (§4.15): group the
// ClickHouse search log by normalized query pattern over a recent window,
// and raise/extend a Knowledge Gap for every pattern that recurs at least
// MinQueries times while staying below MaxScore.
type GapDetector struct {
	Conn   Conn
	Store  GapStore
	Config config.GapDetectorConfig
	Table  string
}

// NewGapDetector builds a GapDetector from its collaborators.
func NewGapDetector(conn Conn, store GapStore, cfg config.GapDetectorConfig) *GapDetector {
	return &GapDetector{Conn: conn, Store: store, Config: cfg, Table: searchLogsTable}
}

type patternAggregate struct {
	pattern       string
	count         int
	avgScore      float64
	sampleQueries []string
	lastQueryAt   time.Time
}

// DetectGaps runs one aggregation pass and returns the number of gap
// entries created or extended. A nil Conn/Store makes this a no-op: gap
// detection is analytical tooling, never a hard dependency of request
// handling.
func (g *GapDetector) DetectGaps(ctx context.Context) (int, error) {
	if g == nil || g.Conn == nil || g.Store == nil {
		return 0, nil
	}

	windowDays := g.Config.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	minQueries := g.Config.MinQueries
	if minQueries <= 0 {
		minQueries = 3
	}
	maxScore := g.Config.MaxScore
	if maxScore <= 0 {
		maxScore = 0.5
	}
	table := g.Table
	if table == "" {
		table = searchLogsTable
	}

	query := fmt.Sprintf(`
SELECT
    query_pattern,
    count() AS cnt,
    avg(top_score) AS avg_score,
    arraySlice(groupUniqArray(query), 1, 5) AS samples,
    max(ts) AS last_ts
FROM %s
WHERE ts >= now() - INTERVAL %d DAY
GROUP BY query_pattern
HAVING cnt >= ? AND avg_score < ?
`, table, windowDays)

	rows, err := g.Conn.Query(ctx, query, minQueries, maxScore)
	if err != nil {
		return 0, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var aggregates []patternAggregate
	for rows.Next() {
		var agg patternAggregate
		var cnt uint64
		if err := rows.Scan(&agg.pattern, &cnt, &agg.avgScore, &agg.sampleQueries, &agg.lastQueryAt); err != nil {
			return 0, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		agg.count = int(cnt)
		aggregates = append(aggregates, agg)
	}
	if err := rows.Err(); err != nil {
		return 0, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}

	raised := 0
	for _, agg := range aggregates {
		if err := g.upsertGap(ctx, agg); err != nil {
			return raised, err
		}
		raised++
	}
	return raised, nil
}

func (g *GapDetector) upsertGap(ctx context.Context, agg patternAggregate) error {
	existing, ok, err := g.Store.GetKnowledgeGapByTopic(ctx, agg.pattern)
	if err != nil {
		return err
	}

	gap := existing
	gap.Topic = agg.pattern
	gap.QueryCount = agg.count
	gap.AvgScore = agg.avgScore
	gap.LastQueryAt = agg.lastQueryAt
	gap.SampleQueries = dedupCap(append(append([]string{}, existing.SampleQueries...), agg.sampleQueries...), 5)
	gap.Priority = domain.GapPriority(gap.QueryCount, gap.AvgScore)

	if !ok {
		gap.ID = gapID(agg.pattern)
		gap.Status = domain.GapDetected
		gap.FirstDetectedAt = agg.lastQueryAt
	}

	return g.Store.PutKnowledgeGap(ctx, gap)
}

func gapID(pattern string) string {
	sum := sha256.Sum256([]byte(pattern))
	return hex.EncodeToString(sum[:])
}

func dedupCap(in []string, cap int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, cap)
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == cap {
			break
		}
	}
	return out
}
