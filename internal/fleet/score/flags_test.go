package score

import (
	"strings"
	"testing"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func TestDetectFlags_Healthy(t *testing.T) {
	flags := DetectFlags(healthyMetrics())
	if len(flags) != 1 || flags[0] != "healthy" {
		t.Fatalf("healthy account flags: %v", flags)
	}
}

func TestDetectFlags_ErrorRateTiers(t *testing.T) {
	m := healthyMetrics()
	m.ErrorRate24h = 30
	flags := DetectFlags(m)
	if !hasFlag(flags, "high_error_rate") || hasFlag(flags, "critical_error_rate") {
		t.Fatalf("30%% error rate flags: %v", flags)
	}

	m.ErrorRate24h = 60
	flags = DetectFlags(m)
	if !hasFlag(flags, "critical_error_rate") || hasFlag(flags, "high_error_rate") {
		t.Fatalf("60%% error rate flags: %v", flags)
	}
}

func TestDetectFlags_MultipleConditions(t *testing.T) {
	m := healthyMetrics()
	m.ErrorRate24h = 25
	m.RateLimitHits24h = 2
	m.RateLimitHits7d = 5
	m.State = model.StateSuspended
	m.LoginChallenges = 1

	flags := DetectFlags(m)
	for _, want := range []string{"high_error_rate", "rate_limited_24h", "frequent_rate_limits", "suspended", "login_challenge"} {
		if !hasFlag(flags, want) {
			t.Fatalf("missing %q in %v", want, flags)
		}
	}
	if hasFlag(flags, "healthy") {
		t.Fatalf("healthy flag present alongside problems: %v", flags)
	}
}

func TestDetectFlags_Inactive(t *testing.T) {
	m := healthyMetrics()
	last := m.CollectedAt.Add(-4 * 24 * time.Hour)
	m.LastPostAt = &last
	if !hasFlag(DetectFlags(m), "inactive") {
		t.Fatalf("stale account not flagged inactive")
	}

	// an account that never posted is new, not inactive
	fresh := &model.AccountMetrics{State: model.StateActive, CollectedAt: m.CollectedAt}
	if hasFlag(DetectFlags(fresh), "inactive") {
		t.Fatalf("zero-post account flagged inactive")
	}
}

func TestGenerateRecommendations(t *testing.T) {
	recs := GenerateRecommendations(healthyMetrics())
	if len(recs) != 1 || !strings.Contains(recs[0], "no action needed") {
		t.Fatalf("healthy recommendations: %v", recs)
	}

	m := healthyMetrics()
	m.RateLimitHits24h = 3
	m.PostSuccessRate = 60
	recs = GenerateRecommendations(m)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %v", recs)
	}
	if !strings.Contains(recs[0], "rate limits 3 time(s)") {
		t.Fatalf("rate limit recommendation missing: %v", recs)
	}
	if !strings.Contains(recs[1], "60%") {
		t.Fatalf("success rate recommendation missing: %v", recs)
	}
}
