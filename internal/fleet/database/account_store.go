package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// GetAccount returns the account row or model.ErrNotFound.
func (d *Database) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	const q = `SELECT id, tenant_id, name, state, COALESCE(last_error, ''), created_at
FROM accounts WHERE id = $1`
	var a model.Account
	err := d.QueryRowContext(ctx, q, accountID).Scan(&a.ID, &a.TenantID, &a.Name, &a.State, &a.LastError, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// ListAccounts returns all accounts owned by a tenant, oldest first.
func (d *Database) ListAccounts(ctx context.Context, tenantID string) ([]model.Account, error) {
	const q = `SELECT id, tenant_id, name, state, COALESCE(last_error, ''), created_at
FROM accounts WHERE tenant_id = $1 ORDER BY created_at ASC`
	rows, err := d.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	out := []model.Account{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.State, &a.LastError, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PostTotals aggregates all-time post outcomes for one account in one pass.
func (d *Database) PostTotals(ctx context.Context, accountID string) (model.PostTotals, error) {
	const q = `SELECT COUNT(*),
       COUNT(*) FILTER (WHERE success),
       COUNT(*) FILTER (WHERE NOT success),
       COALESCE(SUM(response_ms), 0),
       MAX(created_at)
FROM post_events WHERE account_id = $1`
	var t model.PostTotals
	var last sql.NullTime
	err := d.QueryRowContext(ctx, q, accountID).Scan(&t.Total, &t.Success, &t.Failed, &t.TotalResponseMs, &last)
	if err != nil {
		return model.PostTotals{}, fmt.Errorf("post totals: %w", err)
	}
	if last.Valid {
		t.LastPostAt = &last.Time
	}
	return t, nil
}

// PostCountSince counts posts for an account after the given cutoff.
func (d *Database) PostCountSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM post_events WHERE account_id = $1 AND created_at >= $2`
	var n int
	if err := d.QueryRowContext(ctx, q, accountID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("post count since: %w", err)
	}
	return n, nil
}

// FailedPostErrors returns error texts of all failed posts for an account,
// newest first. The collector does the token matching; upstream error text
// is not normalized enough for SQL equality.
func (d *Database) FailedPostErrors(ctx context.Context, accountID string) ([]model.TimedError, error) {
	const q = `SELECT COALESCE(error, ''), created_at
FROM post_events WHERE account_id = $1 AND NOT success ORDER BY created_at DESC`
	rows, err := d.QueryContext(ctx, q, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed post errors: %w", err)
	}
	defer rows.Close()
	out := []model.TimedError{}
	for rows.Next() {
		var e model.TimedError
		if err := rows.Scan(&e.Text, &e.At); err != nil {
			return nil, fmt.Errorf("scan failed post error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WarmupCounts returns completed and total warmup tasks for an account.
func (d *Database) WarmupCounts(ctx context.Context, accountID string) (done, total int, err error) {
	const q = `SELECT COUNT(*) FILTER (WHERE completed), COUNT(*)
FROM warmup_tasks WHERE account_id = $1`
	if err := d.QueryRowContext(ctx, q, accountID).Scan(&done, &total); err != nil {
		return 0, 0, fmt.Errorf("warmup counts: %w", err)
	}
	return done, total, nil
}

// TenantPostTotals aggregates post outcomes across all of a tenant's
// accounts in one pass.
func (d *Database) TenantPostTotals(ctx context.Context, tenantID string) (model.PostTotals, error) {
	const q = `SELECT COUNT(*),
       COUNT(*) FILTER (WHERE success),
       COUNT(*) FILTER (WHERE NOT success),
       COALESCE(SUM(response_ms), 0),
       MAX(created_at)
FROM post_events WHERE tenant_id = $1`
	var t model.PostTotals
	var last sql.NullTime
	err := d.QueryRowContext(ctx, q, tenantID).Scan(&t.Total, &t.Success, &t.Failed, &t.TotalResponseMs, &last)
	if err != nil {
		return model.PostTotals{}, fmt.Errorf("tenant post totals: %w", err)
	}
	if last.Valid {
		t.LastPostAt = &last.Time
	}
	return t, nil
}

// TenantWindowCounts counts posts and failed posts for a tenant after the
// given cutoff.
func (d *Database) TenantWindowCounts(ctx context.Context, tenantID string, since time.Time) (posts, failed int, err error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT success)
FROM post_events WHERE tenant_id = $1 AND created_at >= $2`
	if err := d.QueryRowContext(ctx, q, tenantID, since).Scan(&posts, &failed); err != nil {
		return 0, 0, fmt.Errorf("tenant window counts: %w", err)
	}
	return posts, failed, nil
}

// PostBuckets rolls up post outcomes into day or week buckets since the
// cutoff, oldest bucket first.
func (d *Database) PostBuckets(ctx context.Context, accountID string, since time.Time, g model.Granularity) ([]model.MetricsBucket, error) {
	trunc := "day"
	if g == model.GranularityWeek {
		trunc = "week"
	}
	q := fmt.Sprintf(`SELECT date_trunc('%s', created_at) AS bucket,
       COUNT(*),
       COUNT(*) FILTER (WHERE success),
       COUNT(*) FILTER (WHERE NOT success)
FROM post_events WHERE account_id = $1 AND created_at >= $2
GROUP BY bucket ORDER BY bucket ASC`, trunc)
	rows, err := d.QueryContext(ctx, q, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("post buckets: %w", err)
	}
	defer rows.Close()
	out := []model.MetricsBucket{}
	for rows.Next() {
		var b model.MetricsBucket
		if err := rows.Scan(&b.BucketStart, &b.Posts, &b.Successes, &b.Failures); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		if b.Posts > 0 {
			b.SuccessRate = float64(b.Successes) / float64(b.Posts) * 100
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
