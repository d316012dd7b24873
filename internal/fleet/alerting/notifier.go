package alerting

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// LogNotifier writes alert dispatches to the structured log. It stands in
// for a real delivery channel (email, push, webhook), which is an external
// collaborator.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, tenantID string, alert *model.Alert) error {
	log.Info().
		Str("tenant_id", tenantID).
		Str("alert_id", alert.ID).
		Str("account_id", alert.AccountID).
		Str("type", string(alert.Type)).
		Str("severity", string(alert.Severity)).
		Str("message", alert.Message).
		Msg("alert notification")
	return nil
}

// NopNotifier discards all dispatches.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string, *model.Alert) error { return nil }
