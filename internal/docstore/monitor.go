package docstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/domain"
)

// PutMonitorTarget inserts or replaces a monitor target.
func (s *Store) PutMonitorTarget(ctx context.Context, t domain.MonitorTarget) error {
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return apperr.Wrap(apperr.InvalidInput, component, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO monitor_targets (id, url, collection, category, interval_hours, is_active,
    last_checked_at, last_success_at, consecutive_failures, max_failures, last_content_hash,
    last_error, selector, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
    url = EXCLUDED.url, collection = EXCLUDED.collection, category = EXCLUDED.category,
    interval_hours = EXCLUDED.interval_hours, is_active = EXCLUDED.is_active,
    last_checked_at = EXCLUDED.last_checked_at, last_success_at = EXCLUDED.last_success_at,
    consecutive_failures = EXCLUDED.consecutive_failures, max_failures = EXCLUDED.max_failures,
    last_content_hash = EXCLUDED.last_content_hash, last_error = EXCLUDED.last_error,
    selector = EXCLUDED.selector, metadata = EXCLUDED.metadata
`, t.ID, t.URL, t.Collection, t.Category, t.IntervalHours, t.IsActive, t.LastCheckedAt, t.LastSuccessAt,
		t.ConsecutiveFailures, t.MaxFailures, t.LastContentHash, t.LastError, t.Selector, metadata)
	if err != nil {
		return apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return nil
}

// ListActiveMonitorTargets returns every active target, for the scheduler's
// per-tick due-check sweep.
func (s *Store) ListActiveMonitorTargets(ctx context.Context) ([]domain.MonitorTarget, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, url, collection, category, interval_hours, is_active, last_checked_at, last_success_at,
    consecutive_failures, max_failures, last_content_hash, last_error, selector, metadata
FROM monitor_targets WHERE is_active`)
	if err != nil {
		return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	defer rows.Close()

	var out []domain.MonitorTarget
	for rows.Next() {
		t, err := scanMonitorTarget(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.DependencyUnavailable, component, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanMonitorTarget(row pgx.Row) (domain.MonitorTarget, error) {
	var t domain.MonitorTarget
	var metadata []byte
	if err := row.Scan(&t.ID, &t.URL, &t.Collection, &t.Category, &t.IntervalHours, &t.IsActive,
		&t.LastCheckedAt, &t.LastSuccessAt, &t.ConsecutiveFailures, &t.MaxFailures, &t.LastContentHash,
		&t.LastError, &t.Selector, &metadata); err != nil {
		return domain.MonitorTarget{}, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &t.Metadata)
	}
	return t, nil
}

// CompareAndSwapMonitorTarget applies update only if the stored target's
// ConsecutiveFailures still equals expectedFailures, the optimistic-lock
// pattern that keeps two concurrent crawl workers from racing on the same
// target's failure counter.
func (s *Store) CompareAndSwapMonitorTarget(ctx context.Context, update domain.MonitorTarget, expectedFailures int) (bool, error) {
	metadata, err := json.Marshal(update.Metadata)
	if err != nil {
		return false, apperr.Wrap(apperr.InvalidInput, component, err)
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE monitor_targets SET
    last_checked_at = $3, last_success_at = $4, consecutive_failures = $5, is_active = $6,
    last_content_hash = $7, last_error = $8, metadata = $9
WHERE id = $1 AND consecutive_failures = $2`,
		update.ID, expectedFailures, update.LastCheckedAt, update.LastSuccessAt, update.ConsecutiveFailures,
		update.IsActive, update.LastContentHash, update.LastError, metadata)
	if err != nil {
		return false, apperr.Wrap(apperr.DependencyUnavailable, component, err)
	}
	return tag.RowsAffected() == 1, nil
}
