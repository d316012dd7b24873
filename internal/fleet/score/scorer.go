// Package score derives bounded health scores from account metrics. All
// functions are pure: identical input yields identical output, and nothing
// here touches storage or the clock.
package score

import (
	"math"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// fastResponseMs is the upper bound for the quick-response bonus.
const fastResponseMs = 2000

// statePenalty is subtracted from the health score. Normal operating states
// carry no penalty.
var statePenalty = map[model.AccountState]float64{
	model.StateBanned:      100,
	model.StateSuspended:   50,
	model.StateRecovery:    40,
	model.StateRateLimited: 30,
	model.StatePaused:      20,
}

// stateRisk is a separate table from statePenalty: risk escalates faster
// than health degrades for the same condition.
var stateRisk = map[model.AccountState]float64{
	model.StateBanned:      100,
	model.StateSuspended:   70,
	model.StateRateLimited: 50,
	model.StateRecovery:    35,
	model.StatePaused:      10,
}

// CalculateHealthScore produces the published overall score. Penalties are
// applied before bonuses and the clamp comes last, so bonuses can partially
// offset penalties but never push the score outside [0,100].
func CalculateHealthScore(m *model.AccountMetrics) int {
	s := 100.0

	s -= (100 - m.PostSuccessRate) * 0.3
	s -= m.ErrorRate24h * 2.5
	s -= float64(m.RateLimitHits24h) * 10
	s -= float64(m.LoginChallenges) * 15
	s -= statePenalty[m.State]

	if m.PostSuccessRate > 95 {
		s += math.Min((m.PostSuccessRate-95)*2, 10)
	}
	if m.AvgResponseMs > 0 && m.AvgResponseMs < fastResponseMs {
		s += 5
	}
	if m.WarmupProgress > 0 && m.WarmupProgress < 100 {
		s += 5
	}

	return clampRound(s)
}

// CalculateEngagementScore penalizes stale and low-volume accounts,
// independent of the health model.
func CalculateEngagementScore(m *model.AccountMetrics) int {
	s := 100.0

	switch {
	case m.LastPostAt == nil:
		s -= 50
	case m.CollectedAt.Sub(*m.LastPostAt) > 7*24*time.Hour:
		s -= 40
	case m.CollectedAt.Sub(*m.LastPostAt) > 3*24*time.Hour:
		s -= 25
	case m.CollectedAt.Sub(*m.LastPostAt) > 24*time.Hour:
		s -= 10
	}

	switch {
	case m.TotalPosts < 10:
		s -= 30
	case m.TotalPosts < 50:
		s -= 15
	case m.TotalPosts > 500:
		s += 10
	}

	return clampRound(s)
}

// CalculateRiskScore is higher-is-worse and weights login challenges and
// rate limiting more heavily than the health model does.
func CalculateRiskScore(m *model.AccountMetrics) int {
	s := 0.0

	s += m.ErrorRate24h * 2
	s += float64(m.RateLimitHits7d) * 8
	s += float64(m.LoginChallenges) * 25
	s += stateRisk[m.State]

	if m.Errors24h > 10 {
		s += 15
	}
	if m.TotalPosts > 0 {
		switch {
		case m.PostSuccessRate < 50:
			s += 20
		case m.PostSuccessRate < 80:
			s += 10
		}
	}

	return clampRound(s)
}

// CategorizeHealth maps a score to its band. Out-of-range inputs clamp to
// the nearest boundary category.
func CategorizeHealth(score int) model.HealthCategory {
	switch {
	case score >= 90:
		return model.CategoryExcellent
	case score >= 75:
		return model.CategoryGood
	case score >= 50:
		return model.CategoryFair
	case score >= 25:
		return model.CategoryPoor
	default:
		return model.CategoryCritical
	}
}

// GetHealthScoreBreakdown composes all scoring results in one call; this is
// the only entry point the monitor needs.
func GetHealthScoreBreakdown(m *model.AccountMetrics) model.HealthScoreBreakdown {
	overall := CalculateHealthScore(m)

	warmupScore := 100.0
	if m.State == model.StateWarmingUp {
		warmupScore = m.WarmupProgress
	}

	return model.HealthScoreBreakdown{
		Overall:     overall,
		Engagement:  CalculateEngagementScore(m),
		Reliability: int(math.Round(m.PostSuccessRate)),
		Risk:        CalculateRiskScore(m),
		Category:    CategorizeHealth(overall),
		Breakdown: model.ScoreBreakdown{
			SuccessRateScore: math.Round(m.PostSuccessRate),
			ErrorScore:       clampFloat(100 - m.ErrorRate24h*2.5),
			RateLimitScore:   clampFloat(100 - float64(m.RateLimitHits24h)*10),
			StateScore:       clampFloat(100 - statePenalty[m.State]),
			WarmupScore:      warmupScore,
		},
	}
}

func clampRound(s float64) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return int(math.Round(s))
}

func clampFloat(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
