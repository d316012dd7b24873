package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// DefaultCooldown applies when CreateAlert is called with a type that has
// no rule in the table (direct API callers).
const DefaultCooldown = 24 * time.Hour

// Manager owns alert evaluation, deduplicated creation, lifecycle
// transitions, and notification dispatch.
type Manager struct {
	store    Store
	notifier Notifier
	rules    []Rule
	now      func() time.Time
}

func NewManager(store Store, notifier Notifier, rules []Rule) *Manager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Manager{store: store, notifier: notifier, rules: rules, now: time.Now}
}

// CheckAlertRules evaluates every rule against the metrics snapshot, in
// table order, with no short-circuiting: several rules may fire at once.
// Pure evaluation, no I/O.
func (m *Manager) CheckAlertRules(metrics *model.AccountMetrics) []Firing {
	out := []Firing{}
	for _, r := range m.rules {
		if !r.When(metrics) {
			continue
		}
		out = append(out, Firing{
			Type:     r.Type,
			Severity: r.Severity,
			Message:  r.Message(metrics),
			Cooldown: r.Cooldown,
		})
	}
	return out
}

// CreateAlert persists a new alert unless one of the same (account, type)
// exists within the rule's cooldown window, in which case the existing
// alert is returned unchanged with no second notification. The rule table
// supplies the cooldown for known types; unknown types get DefaultCooldown.
func (m *Manager) CreateAlert(ctx context.Context, accountID string, typ model.AlertType, sev model.Severity, message string, metadata map[string]any) (*model.Alert, error) {
	return m.createAlert(ctx, accountID, typ, sev, message, metadata, m.cooldownFor(typ))
}

func (m *Manager) createAlert(ctx context.Context, accountID string, typ model.AlertType, sev model.Severity, message string, metadata map[string]any, cooldown time.Duration) (*model.Alert, error) {
	acct, err := m.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	alert := &model.Alert{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TenantID:  acct.TenantID,
		Type:      typ,
		Severity:  sev,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: m.now().UTC(),
	}
	stored, created, err := m.store.InsertAlertIfAbsent(ctx, alert, cooldown)
	if err != nil {
		return nil, err
	}
	if !created {
		log.Debug().
			Str("account_id", accountID).
			Str("type", string(typ)).
			Str("existing_id", stored.ID).
			Msg("alert suppressed by cooldown")
		return stored, nil
	}
	if err := m.notifier.Send(ctx, stored.TenantID, stored); err != nil {
		log.Warn().Err(err).
			Str("alert_id", stored.ID).
			Str("tenant_id", stored.TenantID).
			Msg("alert notification dispatch failed")
	}
	return stored, nil
}

// AutoCreateAlerts runs the rule table against the metrics snapshot and
// persists every match. Individual failures are logged and skipped so one
// bad rule cannot block the rest.
func (m *Manager) AutoCreateAlerts(ctx context.Context, accountID string, metrics *model.AccountMetrics) []model.Alert {
	out := []model.Alert{}
	for _, f := range m.CheckAlertRules(metrics) {
		a, err := m.createAlert(ctx, accountID, f.Type, f.Severity, f.Message, nil, f.Cooldown)
		if err != nil {
			log.Error().Err(err).
				Str("account_id", accountID).
				Str("type", string(f.Type)).
				Msg("auto alert creation failed")
			continue
		}
		out = append(out, *a)
	}
	return out
}

// GetActiveAlerts returns a tenant's unresolved alerts, newest first.
func (m *Manager) GetActiveAlerts(ctx context.Context, tenantID string, unackedOnly bool) ([]model.Alert, error) {
	return m.store.ListActiveAlerts(ctx, tenantID, unackedOnly)
}

// GetAccountAlerts returns an account's most recent alerts.
func (m *Manager) GetAccountAlerts(ctx context.Context, accountID string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 10
	}
	return m.store.ListAccountAlerts(ctx, accountID, limit)
}

// GetAlertsSince returns a tenant's alerts created after the cutoff.
func (m *Manager) GetAlertsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Alert, error) {
	return m.store.ListAlertsSince(ctx, tenantID, since)
}

// AcknowledgeAlert marks an alert acknowledged and returns the updated row.
func (m *Manager) AcknowledgeAlert(ctx context.Context, id string) (*model.Alert, error) {
	if err := m.store.AcknowledgeAlert(ctx, id, m.now().UTC()); err != nil {
		return nil, err
	}
	return m.store.GetAlert(ctx, id)
}

// ResolveAlert marks an alert resolved, attaching the note into metadata
// when provided. Resolution does not require prior acknowledgement.
func (m *Manager) ResolveAlert(ctx context.Context, id, note string) (*model.Alert, error) {
	if err := m.store.ResolveAlert(ctx, id, m.now().UTC(), note); err != nil {
		return nil, err
	}
	return m.store.GetAlert(ctx, id)
}

// GetAlertStats aggregates the tenant's alert log for dashboards.
func (m *Manager) GetAlertStats(ctx context.Context, tenantID string) (*model.AlertStats, error) {
	return m.store.AlertStats(ctx, tenantID)
}

func (m *Manager) cooldownFor(typ model.AlertType) time.Duration {
	for _, r := range m.rules {
		if r.Type == typ {
			return r.Cooldown
		}
	}
	return DefaultCooldown
}
