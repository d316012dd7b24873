package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// WithTx runs fn inside a transaction, committing on nil and rolling back
// on error or panic.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

const alertColumns = `id, account_id, tenant_id, type, severity, message, COALESCE(metadata::text, ''),
       acknowledged, acknowledged_at, resolved, resolved_at, created_at`

// InsertAlertIfAbsent inserts the alert unless an alert of the same
// (account, type) already exists inside the cooldown window. The check and
// insert run under a per-(account,type) advisory lock so two concurrent
// calls cannot both insert. Returns the surviving alert and whether a new
// row was created.
func (d *Database) InsertAlertIfAbsent(ctx context.Context, a *model.Alert, cooldown time.Duration) (*model.Alert, bool, error) {
	var out *model.Alert
	created := false
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
			a.AccountID+"|"+string(a.Type)); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}

		cutoff := a.CreatedAt.Add(-cooldown)
		q := `SELECT ` + alertColumns + `
FROM alerts WHERE account_id = $1 AND type = $2 AND created_at > $3
ORDER BY created_at DESC LIMIT 1`
		row := tx.QueryRowContext(ctx, q, a.AccountID, a.Type, cutoff)
		existing, err := scanAlertRow(row)
		if err == nil {
			out = existing
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("dedup check: %w", err)
		}

		metadataJSON := []byte("{}")
		if a.Metadata != nil {
			metadataJSON, _ = json.Marshal(a.Metadata)
		}
		const ins = `
		INSERT INTO alerts(id, account_id, tenant_id, type, severity, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		`
		if _, err := tx.ExecContext(ctx, ins, a.ID, a.AccountID, a.TenantID, a.Type, a.Severity,
			a.Message, string(metadataJSON), a.CreatedAt); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
		out = a
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// GetAlert returns one alert by id or model.ErrNotFound.
func (d *Database) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	a, err := scanAlertRow(d.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// ListActiveAlerts returns a tenant's unresolved alerts, newest first.
func (d *Database) ListActiveAlerts(ctx context.Context, tenantID string, unackedOnly bool) ([]model.Alert, error) {
	q := `SELECT ` + alertColumns + `
FROM alerts WHERE tenant_id = $1 AND NOT resolved`
	if unackedOnly {
		q += ` AND NOT acknowledged`
	}
	q += ` ORDER BY created_at DESC`
	return d.queryAlerts(ctx, q, tenantID)
}

// ListAccountAlerts returns an account's most recent alerts.
func (d *Database) ListAccountAlerts(ctx context.Context, accountID string, limit int) ([]model.Alert, error) {
	q := `SELECT ` + alertColumns + `
FROM alerts WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`
	return d.queryAlerts(ctx, q, accountID, limit)
}

// ListAlertsSince returns a tenant's alerts created after the cutoff,
// newest first.
func (d *Database) ListAlertsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Alert, error) {
	q := `SELECT ` + alertColumns + `
FROM alerts WHERE tenant_id = $1 AND created_at >= $2 ORDER BY created_at DESC`
	return d.queryAlerts(ctx, q, tenantID, since)
}

// AcknowledgeAlert marks the alert acknowledged. Idempotent for already
// acknowledged alerts.
func (d *Database) AcknowledgeAlert(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE alerts SET acknowledged = TRUE, acknowledged_at = COALESCE(acknowledged_at, $2) WHERE id = $1`
	res, err := d.ExecContext(ctx, q, id, at)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// ResolveAlert marks the alert resolved, attaching the resolution note into
// metadata when provided. Resolution does not require acknowledgement.
func (d *Database) ResolveAlert(ctx context.Context, id string, at time.Time, note string) error {
	const q = `
	UPDATE alerts SET resolved = TRUE,
	       resolved_at = COALESCE(resolved_at, $2),
	       metadata = CASE WHEN $3 <> ''
	                  THEN COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('resolutionNote', $3::text)
	                  ELSE metadata END
	WHERE id = $1
	`
	res, err := d.ExecContext(ctx, q, id, at, note)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alert %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// AlertStats aggregates a tenant's alert log by severity and type.
func (d *Database) AlertStats(ctx context.Context, tenantID string) (*model.AlertStats, error) {
	const q = `
	SELECT severity, type, COUNT(*),
	       COUNT(*) FILTER (WHERE NOT acknowledged),
	       COUNT(*) FILTER (WHERE NOT resolved)
	FROM alerts WHERE tenant_id = $1
	GROUP BY severity, type
	`
	rows, err := d.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("alert stats: %w", err)
	}
	defer rows.Close()
	stats := &model.AlertStats{
		BySeverity: map[model.Severity]int{},
		ByType:     map[model.AlertType]int{},
	}
	for rows.Next() {
		var sev model.Severity
		var typ model.AlertType
		var count, unacked, unresolved int
		if err := rows.Scan(&sev, &typ, &count, &unacked, &unresolved); err != nil {
			return nil, fmt.Errorf("scan alert stats: %w", err)
		}
		stats.Total += count
		stats.Unacknowledged += unacked
		stats.Unresolved += unresolved
		stats.BySeverity[sev] += count
		stats.ByType[typ] += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlertRow(row rowScanner) (*model.Alert, error) {
	var a model.Alert
	var metadataText string
	var ackedAt, resolvedAt pgtype.Timestamptz
	err := row.Scan(&a.ID, &a.AccountID, &a.TenantID, &a.Type, &a.Severity, &a.Message, &metadataText,
		&a.Acknowledged, &ackedAt, &a.Resolved, &resolvedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if metadataText != "" && metadataText != "{}" {
		_ = json.Unmarshal([]byte(metadataText), &a.Metadata)
	}
	if ackedAt.Valid {
		t := ackedAt.Time
		a.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func (d *Database) queryAlerts(ctx context.Context, q string, args ...any) ([]model.Alert, error) {
	rows, err := d.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()
	out := []model.Alert{}
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
