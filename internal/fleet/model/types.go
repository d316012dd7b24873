package model

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an account or tenant does not exist.
// Callers distinguish it with errors.Is.
var ErrNotFound = errors.New("not found")

// AccountState is the lifecycle state of a managed account.
type AccountState string

const (
	StateActive      AccountState = "ACTIVE"
	StateWarmingUp   AccountState = "WARMING_UP"
	StatePaused      AccountState = "PAUSED"
	StateRateLimited AccountState = "RATE_LIMITED"
	StateSuspended   AccountState = "SUSPENDED"
	StateRecovery    AccountState = "RECOVERY"
	StateBanned      AccountState = "BANNED"
)

// Severity is the alert severity code.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AlertType identifies the rule that produced an alert.
type AlertType string

const (
	AlertHighErrorRate     AlertType = "high_error_rate"
	AlertCriticalErrorRate AlertType = "critical_error_rate"
	AlertRateLimited       AlertType = "rate_limited"
	AlertLoginChallenge    AlertType = "login_challenge"
	AlertAccountSuspended  AlertType = "account_suspended"
	AlertAccountBanned     AlertType = "account_banned"
	AlertLowSuccessRate    AlertType = "low_success_rate"
	AlertAccountInactive   AlertType = "account_inactive"
	AlertWarmupStalled     AlertType = "warmup_stalled"
)

// Account is the persisted account row as the monitoring core sees it.
// Session, proxy and posting attributes live in other subsystems.
type Account struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenantId"`
	Name      string       `json:"name"`
	State     AccountState `json:"state"`
	LastError string       `json:"lastError,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PostEvent is one posting attempt outcome.
type PostEvent struct {
	ID         int64     `json:"id"`
	AccountID  string    `json:"accountId"`
	TenantID   string    `json:"tenantId"`
	Success    bool      `json:"success"`
	ResponseMs int64     `json:"responseMs"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WarmupTask is one step of an account's staged ramp-up.
type WarmupTask struct {
	ID          int64      `json:"id"`
	AccountID   string     `json:"accountId"`
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ScoreSnapshot is the one-row-per-account published score, upserted on
// every monitoring pass and joined for top/bottom lists.
type ScoreSnapshot struct {
	AccountID string    `json:"accountId"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Alert is a persisted, deduplicated record of a rule firing. Alerts are
// never deleted; they accumulate as an audit log.
type Alert struct {
	ID             string         `json:"id"`
	AccountID      string         `json:"accountId"`
	TenantID       string         `json:"tenantId"`
	Type           AlertType      `json:"type"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedAt *time.Time     `json:"acknowledgedAt,omitempty"`
	Resolved       bool           `json:"resolved"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// AlertStats summarizes a tenant's alert log for dashboards.
type AlertStats struct {
	Total          int               `json:"total"`
	Unacknowledged int               `json:"unacknowledged"`
	Unresolved     int               `json:"unresolved"`
	BySeverity     map[Severity]int  `json:"bySeverity"`
	ByType         map[AlertType]int `json:"byType"`
}
