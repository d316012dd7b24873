package score

import (
	"fmt"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// DetectFlags evaluates a fixed sequence of threshold conditions and
// returns machine-readable tags in evaluation order. A well-performing
// account gets a single "healthy" flag rather than an empty list.
func DetectFlags(m *model.AccountMetrics) []string {
	flags := []string{}

	switch {
	case m.ErrorRate24h > 50:
		flags = append(flags, "critical_error_rate")
	case m.ErrorRate24h > 20:
		flags = append(flags, "high_error_rate")
	}
	if m.RateLimitHits24h > 0 {
		flags = append(flags, "rate_limited_24h")
	}
	if m.RateLimitHits7d > 3 {
		flags = append(flags, "frequent_rate_limits")
	}
	switch m.State {
	case model.StateBanned:
		flags = append(flags, "banned")
	case model.StateSuspended:
		flags = append(flags, "suspended")
	case model.StateRecovery:
		flags = append(flags, "in_recovery")
	}
	if m.LoginChallenges > 0 {
		flags = append(flags, "login_challenge")
	}
	if m.TotalPosts > 0 && m.PostSuccessRate < 80 {
		flags = append(flags, "low_success_rate")
	}
	if inactiveFor(m, 3*24*time.Hour) {
		flags = append(flags, "inactive")
	}
	if m.AvgResponseMs > 10000 {
		flags = append(flags, "slow_responses")
	}

	if len(flags) == 0 {
		flags = append(flags, "healthy")
	}
	return flags
}

// GenerateRecommendations mirrors DetectFlags with operator-facing
// messages.
func GenerateRecommendations(m *model.AccountMetrics) []string {
	recs := []string{}

	switch {
	case m.ErrorRate24h > 50:
		recs = append(recs, "Error rate is critical; pause posting and inspect recent failures.")
	case m.ErrorRate24h > 20:
		recs = append(recs, "Error rate is elevated; reduce posting frequency.")
	}
	if m.RateLimitHits24h > 0 {
		recs = append(recs, fmt.Sprintf("Hit rate limits %d time(s) in 24h; increase delays between actions.", m.RateLimitHits24h))
	}
	switch m.State {
	case model.StateBanned:
		recs = append(recs, "Account is banned; retire it and provision a replacement.")
	case model.StateSuspended:
		recs = append(recs, "Account is suspended; appeal or wait before resuming activity.")
	case model.StateRateLimited:
		recs = append(recs, "Account is rate limited; hold all activity until the limit clears.")
	}
	if m.LoginChallenges > 0 {
		recs = append(recs, "Login challenge detected; re-verify the session manually.")
	}
	if m.TotalPosts > 0 && m.PostSuccessRate < 80 {
		recs = append(recs, fmt.Sprintf("Post success rate is %.0f%%; review content and session quality.", m.PostSuccessRate))
	}
	if inactiveFor(m, 3*24*time.Hour) {
		recs = append(recs, "No posts in over 3 days; schedule activity to keep the account warm.")
	}
	if m.AvgResponseMs > 10000 {
		recs = append(recs, "Average response time is slow; check proxy latency.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Account is performing well; no action needed.")
	}
	return recs
}

func inactiveFor(m *model.AccountMetrics, d time.Duration) bool {
	if m.TotalPosts == 0 {
		return false
	}
	return m.LastPostAt == nil || m.CollectedAt.Sub(*m.LastPostAt) > d
}
