package database

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// UpsertScore writes the one-row-per-account score snapshot.
func (d *Database) UpsertScore(ctx context.Context, accountID string, score int, at time.Time) error {
	const q = `
	INSERT INTO account_health_scores(account_id, score, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (account_id) DO UPDATE SET
		score = EXCLUDED.score,
		updated_at = EXCLUDED.updated_at
	`
	if _, err := d.ExecContext(ctx, q, accountID, score, at); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// TopScores returns the tenant's best-scored accounts, joined with account
// attributes for display.
func (d *Database) TopScores(ctx context.Context, tenantID string, limit int) ([]model.AccountScoreSummary, error) {
	const q = `
	SELECT a.id, a.name, a.state, s.score
	FROM account_health_scores s
	JOIN accounts a ON a.id = s.account_id
	WHERE a.tenant_id = $1
	ORDER BY s.score DESC, a.id ASC
	LIMIT $2
	`
	return d.queryScoreSummaries(ctx, q, tenantID, limit)
}

// BottomScores returns the tenant's worst-scored accounts with a score
// strictly below the cutoff, so the list may hold fewer than limit entries.
func (d *Database) BottomScores(ctx context.Context, tenantID string, limit, below int) ([]model.AccountScoreSummary, error) {
	const q = `
	SELECT a.id, a.name, a.state, s.score
	FROM account_health_scores s
	JOIN accounts a ON a.id = s.account_id
	WHERE a.tenant_id = $1 AND s.score < $3
	ORDER BY s.score ASC, a.id ASC
	LIMIT $2
	`
	return d.queryScoreSummaries(ctx, q, tenantID, limit, below)
}

// AvgScore returns the mean snapshot score across a tenant's accounts,
// 0 when no snapshots exist.
func (d *Database) AvgScore(ctx context.Context, tenantID string) (float64, error) {
	const q = `
	SELECT COALESCE(AVG(s.score), 0)
	FROM account_health_scores s
	JOIN accounts a ON a.id = s.account_id
	WHERE a.tenant_id = $1
	`
	var avg float64
	if err := d.QueryRowContext(ctx, q, tenantID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("avg score: %w", err)
	}
	return avg, nil
}

func (d *Database) queryScoreSummaries(ctx context.Context, q string, args ...any) ([]model.AccountScoreSummary, error) {
	rows, err := d.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query score summaries: %w", err)
	}
	defer rows.Close()
	out := []model.AccountScoreSummary{}
	for rows.Next() {
		var s model.AccountScoreSummary
		if err := rows.Scan(&s.AccountID, &s.Name, &s.State, &s.Score); err != nil {
			return nil, fmt.Errorf("scan score summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
