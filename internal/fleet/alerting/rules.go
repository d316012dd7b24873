package alerting

import (
	"fmt"
	"os"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
	"gopkg.in/yaml.v3"
)

// DefaultRules returns the built-in rule table in evaluation order.
// Cooldowns range from 6h for noisy transient conditions to 72h for
// terminal ones.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:     model.AlertCriticalErrorRate,
			Severity: model.SeverityCritical,
			Cooldown: 6 * time.Hour,
			When:     func(m *model.AccountMetrics) bool { return m.ErrorRate24h > 50 },
			Message: func(m *model.AccountMetrics) string {
				return fmt.Sprintf("Error rate reached %.0f%% over the last 24h", m.ErrorRate24h)
			},
		},
		{
			Type:     model.AlertHighErrorRate,
			Severity: model.SeverityWarning,
			Cooldown: 6 * time.Hour,
			When:     func(m *model.AccountMetrics) bool { return m.ErrorRate24h > 20 && m.ErrorRate24h <= 50 },
			Message: func(m *model.AccountMetrics) string {
				return fmt.Sprintf("Error rate at %.0f%% over the last 24h", m.ErrorRate24h)
			},
		},
		{
			Type:     model.AlertRateLimited,
			Severity: model.SeverityWarning,
			Cooldown: 12 * time.Hour,
			When:     func(m *model.AccountMetrics) bool { return m.RateLimitHits24h >= 3 },
			Message: func(m *model.AccountMetrics) string {
				return fmt.Sprintf("Hit rate limits %d times in the last 24h", m.RateLimitHits24h)
			},
		},
		{
			Type:     model.AlertLoginChallenge,
			Severity: model.SeverityError,
			Cooldown: 24 * time.Hour,
			When:     func(m *model.AccountMetrics) bool { return m.LoginChallenges > 0 },
			Message: func(m *model.AccountMetrics) string {
				return "Login challenge detected; manual verification required"
			},
		},
		{
			Type:     model.AlertAccountSuspended,
			Severity: model.SeverityError,
			Cooldown: 48 * time.Hour,
			When:     func(m *model.AccountMetrics) bool { return m.State == model.StateSuspended },
			Message: func(m *model.AccountMetrics) string {
				return "Account has been suspended by the platform"
			},
		},
		{
			Type:     model.AlertAccountBanned,
			Severity: model.SeverityCritical,
			Cooldown: 72 * time.Hour,
			When:     func(m *model.AccountMetrics) bool { return m.State == model.StateBanned },
			Message: func(m *model.AccountMetrics) string {
				return "Account has been banned"
			},
		},
		{
			Type:     model.AlertLowSuccessRate,
			Severity: model.SeverityWarning,
			Cooldown: 24 * time.Hour,
			When: func(m *model.AccountMetrics) bool {
				return m.TotalPosts >= 10 && m.PostSuccessRate < 70
			},
			Message: func(m *model.AccountMetrics) string {
				return fmt.Sprintf("Post success rate dropped to %.0f%%", m.PostSuccessRate)
			},
		},
		{
			Type:     model.AlertAccountInactive,
			Severity: model.SeverityInfo,
			Cooldown: 48 * time.Hour,
			When: func(m *model.AccountMetrics) bool {
				return m.TotalPosts > 0 && m.LastPostAt != nil &&
					m.CollectedAt.Sub(*m.LastPostAt) > 7*24*time.Hour
			},
			Message: func(m *model.AccountMetrics) string {
				return "No posting activity for over 7 days"
			},
		},
		{
			Type:     model.AlertWarmupStalled,
			Severity: model.SeverityWarning,
			Cooldown: 24 * time.Hour,
			When: func(m *model.AccountMetrics) bool {
				return m.State == model.StateWarmingUp && m.WarmupProgress < 100 &&
					m.LastPostAt != nil && m.CollectedAt.Sub(*m.LastPostAt) > 3*24*time.Hour
			},
			Message: func(m *model.AccountMetrics) string {
				return fmt.Sprintf("Warmup stalled at %.0f%% with no recent activity", m.WarmupProgress)
			},
		},
	}
}

// RuleOverride is one entry of the optional rules override file. Ops can
// retune cooldowns or disable a rule without a rebuild; predicates stay
// compiled in.
type RuleOverride struct {
	Type     string `yaml:"type"`
	Cooldown string `yaml:"cooldown"`
	Severity string `yaml:"severity"`
	Disabled bool   `yaml:"disabled"`
}

type overridesFile struct {
	Rules []RuleOverride `yaml:"rules"`
}

// LoadRulesWithOverrides returns the default table with the override file
// applied. An empty path returns the defaults unchanged.
func LoadRulesWithOverrides(path string) ([]Rule, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules override file: %w", err)
	}
	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules override file: %w", err)
	}
	byType := map[string]RuleOverride{}
	for _, o := range f.Rules {
		byType[o.Type] = o
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		o, ok := byType[string(r.Type)]
		if !ok {
			out = append(out, r)
			continue
		}
		if o.Disabled {
			continue
		}
		if o.Cooldown != "" {
			d, err := time.ParseDuration(o.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("rule %s: bad cooldown %q: %w", r.Type, o.Cooldown, err)
			}
			r.Cooldown = d
		}
		if o.Severity != "" {
			r.Severity = model.Severity(o.Severity)
		}
		out = append(out, r)
	}
	return out, nil
}
