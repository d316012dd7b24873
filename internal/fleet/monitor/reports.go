package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/swarmops/fleethealth/internal/fleet/model"
	"github.com/swarmops/fleethealth/internal/fleet/score"
)

// GenerateDailyReport composes the current fleet view with the last 24h of
// alerts and top/problem account extracts.
func (m *Monitor) GenerateDailyReport(ctx context.Context, tenantID string) (*model.DailyReport, error) {
	fleet, err := m.MonitorSwarm(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	newAlerts, err := m.alerts.GetAlertsSince(ctx, tenantID, m.now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("daily report alerts: %w", err)
	}

	byScore := make([]model.HealthReport, len(fleet.Accounts))
	copy(byScore, fleet.Accounts)
	sort.Slice(byScore, func(i, j int) bool { return byScore[i].Score.Overall > byScore[j].Score.Overall })

	top := []model.AccountScoreSummary{}
	for _, r := range byScore {
		if len(top) == 5 {
			break
		}
		top = append(top, summaryOf(r))
	}
	problems := []model.AccountScoreSummary{}
	for i := len(byScore) - 1; i >= 0; i-- {
		if len(problems) == 5 || byScore[i].Score.Overall >= problemScoreCutoff {
			break
		}
		problems = append(problems, summaryOf(byScore[i]))
	}

	return &model.DailyReport{
		TenantID:        tenantID,
		Fleet:           *fleet,
		NewAlerts:       newAlerts,
		TopPerformers:   top,
		ProblemAccounts: problems,
		Summary: fmt.Sprintf("Daily digest: %d accounts, average score %d (%s), %d new alerts in 24h, %d problem accounts",
			len(fleet.Accounts), fleet.AvgScore, fleet.Category, len(newAlerts), len(problems)),
		GeneratedAt: m.now().UTC(),
	}, nil
}

// GenerateWeeklyReport recomputes metrics and scores per account, bypassing
// the fleet cache, and derives static threshold recommendations. Trend
// fields are present in the shape but always zero; historical comparison is
// out of scope.
func (m *Monitor) GenerateWeeklyReport(ctx context.Context, tenantID string) (*model.WeeklyReport, error) {
	accounts, err := m.store.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("weekly report accounts: %w", err)
	}

	report := &model.WeeklyReport{
		TenantID:        tenantID,
		TotalAccounts:   len(accounts),
		TopPerformers:   []model.AccountScoreSummary{},
		ProblemAccounts: []model.AccountScoreSummary{},
		Recommendations: []string{},
		GeneratedAt:     m.now().UTC(),
	}

	summaries := []model.AccountScoreSummary{}
	var totalResponseMs int64
	totalSuccess := 0
	for _, a := range accounts {
		metrics, err := m.collector.CollectAccountMetrics(ctx, a.ID)
		if err != nil {
			accountScanFailures.Inc()
			log.Error().Err(err).Str("account_id", a.ID).Msg("weekly report: account skipped")
			continue
		}
		overall := score.CalculateHealthScore(metrics)
		summaries = append(summaries, model.AccountScoreSummary{
			AccountID: a.ID, Name: a.Name, State: a.State, Score: overall,
		})
		report.TotalPosts += metrics.TotalPosts
		totalSuccess += metrics.SuccessfulPosts
		totalResponseMs += metrics.TotalResponseMs
		if a.State == model.StateActive {
			report.ActiveAccounts++
		}
	}

	if report.TotalPosts > 0 {
		report.PostSuccessRate = float64(totalSuccess) / float64(report.TotalPosts) * 100
		report.AvgResponseMs = float64(totalResponseMs) / float64(report.TotalPosts)
	}
	scoreSum := 0
	problemCount := 0
	for _, s := range summaries {
		scoreSum += s.Score
		if s.Score < problemScoreCutoff {
			problemCount++
		}
	}
	if len(summaries) > 0 {
		report.AvgScore = int(float64(scoreSum)/float64(len(summaries)) + 0.5)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Score > summaries[j].Score })
	for _, s := range summaries {
		if len(report.TopPerformers) == 5 {
			break
		}
		report.TopPerformers = append(report.TopPerformers, s)
	}
	for i := len(summaries) - 1; i >= 0; i-- {
		if len(report.ProblemAccounts) == 5 || summaries[i].Score >= problemScoreCutoff {
			break
		}
		report.ProblemAccounts = append(report.ProblemAccounts, summaries[i])
	}

	report.Recommendations = weeklyRecommendations(report, len(summaries), problemCount)
	return report, nil
}

func weeklyRecommendations(r *model.WeeklyReport, scored, problems int) []string {
	recs := []string{}
	if r.TotalPosts > 0 && r.PostSuccessRate < 80 {
		recs = append(recs, fmt.Sprintf("Fleet-wide success rate is %.0f%%; review content quality and session health.", r.PostSuccessRate))
	}
	if scored > 0 && float64(problems)/float64(scored) > 0.3 {
		recs = append(recs, fmt.Sprintf("%d of %d accounts have issues; consider slowing fleet-wide activity.", problems, scored))
	}
	if r.TotalAccounts > 0 && float64(r.ActiveAccounts)/float64(r.TotalAccounts) < 0.7 {
		recs = append(recs, fmt.Sprintf("Only %d of %d accounts are active; investigate paused and suspended accounts.", r.ActiveAccounts, r.TotalAccounts))
	}
	if r.AvgResponseMs > 5000 {
		recs = append(recs, "Average response time is high fleet-wide; review proxy pool performance.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Fleet is operating normally; no action needed.")
	}
	return recs
}

func summaryOf(r model.HealthReport) model.AccountScoreSummary {
	return model.AccountScoreSummary{
		AccountID: r.AccountID,
		Name:      r.Name,
		State:     r.State,
		Score:     r.Score.Overall,
	}
}
