package alerting

import (
	"context"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// Rule is one entry of the static alert rule table. Rules are compiled in,
// immutable after construction, and evaluated in table order on every call.
type Rule struct {
	Type     model.AlertType
	Severity model.Severity
	// Cooldown is the minimum interval during which a duplicate alert of
	// the same (account, type) is suppressed. Each rule declares its own.
	Cooldown time.Duration
	When     func(m *model.AccountMetrics) bool
	Message  func(m *model.AccountMetrics) string
}

// Firing is a matched rule before persistence.
type Firing struct {
	Type     model.AlertType
	Severity model.Severity
	Message  string
	Cooldown time.Duration
}

// Store abstracts alert persistence plus the account lookup needed for
// tenant resolution. Implementations must make InsertAlertIfAbsent atomic
// with respect to the cooldown-window duplicate check.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	InsertAlertIfAbsent(ctx context.Context, a *model.Alert, cooldown time.Duration) (*model.Alert, bool, error)
	GetAlert(ctx context.Context, id string) (*model.Alert, error)
	ListActiveAlerts(ctx context.Context, tenantID string, unackedOnly bool) ([]model.Alert, error)
	ListAccountAlerts(ctx context.Context, accountID string, limit int) ([]model.Alert, error)
	ListAlertsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Alert, error)
	AcknowledgeAlert(ctx context.Context, id string, at time.Time) error
	ResolveAlert(ctx context.Context, id string, at time.Time, note string) error
	AlertStats(ctx context.Context, tenantID string) (*model.AlertStats, error)
}

// Notifier dispatches a created alert to the tenant's notification channel.
// Delivery is fire-and-forget; failures are logged, never propagated.
type Notifier interface {
	Send(ctx context.Context, tenantID string, alert *model.Alert) error
}
