package searchlog

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// Logger persists one Search Log per retrieval call, satisfying
// orchestrator.SearchLogger directly.
type Logger struct {
	Conn  Conn
	Table string
}

// NewLogger builds a Logger. An empty/nil Conn makes Log a no-op, so wiring
// this without a ClickHouse DSN configured never breaks request handling.
func NewLogger(conn Conn) *Logger {
	return &Logger{Conn: conn, Table: searchLogsTable}
}

// Log appends one Search Log entry. A nil Conn is a deliberate no-op:
// search logging is best-effort infrastructure the orchestrator never lets
// fail the response.
func (l *Logger) Log(ctx context.Context, entry domain.SearchLog) error {
	if l == nil || l.Conn == nil {
		return nil
	}
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	pattern := QueryPattern(entry.Query)

	table := l.Table
	if table == "" {
		table = searchLogsTable
	}
	err = l.Conn.Exec(ctx, `
INSERT INTO `+table+` (query, query_pattern, user_id, session_id, results, top_score,
    result_count, result_quality, used_web_fallback, collection, search_latency_ms, ts)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		entry.Query, pattern, entry.UserID, entry.SessionID, string(results), entry.TopScore,
		entry.ResultCount, string(entry.ResultQuality), entry.UsedWebFallback, entry.Collection,
		entry.SearchLatencyMS, entry.Timestamp)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// QueryPattern normalizes a raw query into the grouping key §4.15 names:
// case-folded, whitespace-collapsed, first 100 chars.
func QueryPattern(query string) string {
	normalized := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(query), " "))
	if r := []rune(normalized); len(r) > 100 {
		normalized = string(r[:100])
	}
	return normalized
}
