package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

// Store abstracts the persistent reads the collector needs. The postgres
// implementation lives in internal/fleet/database; tests use an in-memory
// fake.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	ListAccounts(ctx context.Context, tenantID string) ([]model.Account, error)
	PostTotals(ctx context.Context, accountID string) (model.PostTotals, error)
	PostCountSince(ctx context.Context, accountID string, since time.Time) (int, error)
	FailedPostErrors(ctx context.Context, accountID string) ([]model.TimedError, error)
	WarmupCounts(ctx context.Context, accountID string) (done, total int, err error)
	TenantPostTotals(ctx context.Context, tenantID string) (model.PostTotals, error)
	TenantWindowCounts(ctx context.Context, tenantID string, since time.Time) (posts, failed int, err error)
	TopScores(ctx context.Context, tenantID string, limit int) ([]model.AccountScoreSummary, error)
	BottomScores(ctx context.Context, tenantID string, limit, below int) ([]model.AccountScoreSummary, error)
	AvgScore(ctx context.Context, tenantID string) (float64, error)
	PostBuckets(ctx context.Context, accountID string, since time.Time, g model.Granularity) ([]model.MetricsBucket, error)
}

// Upstream error text is not normalized; detection is substring-based.
var rateLimitTokens = []string{"rate limit", "ratelimit", "429", "too many requests"}

var loginChallengeTokens = []string{"challenge", "checkpoint"}

const (
	topListSize       = 5
	bottomScoreCutoff = 50
	day               = 24 * time.Hour
	week              = 7 * day
)

// Collector turns raw event history into point-in-time metrics. It holds no
// cache and performs no retries; failures propagate to the caller.
type Collector struct {
	store Store
	now   func() time.Time
}

func NewCollector(store Store) *Collector {
	return &Collector{store: store, now: time.Now}
}

// CollectAccountMetrics aggregates one account's event history. Returns an
// error wrapping model.ErrNotFound when the account does not exist.
func (c *Collector) CollectAccountMetrics(ctx context.Context, accountID string) (*model.AccountMetrics, error) {
	acct, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()

	totals, err := c.store.PostTotals(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("collect account metrics: %w", err)
	}
	posts24h, err := c.store.PostCountSince(ctx, accountID, now.Add(-day))
	if err != nil {
		return nil, fmt.Errorf("collect account metrics: %w", err)
	}
	posts7d, err := c.store.PostCountSince(ctx, accountID, now.Add(-week))
	if err != nil {
		return nil, fmt.Errorf("collect account metrics: %w", err)
	}
	failures, err := c.store.FailedPostErrors(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("collect account metrics: %w", err)
	}
	warmupDone, warmupTotal, err := c.store.WarmupCounts(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("collect account metrics: %w", err)
	}

	m := &model.AccountMetrics{
		AccountID:        accountID,
		TotalPosts:       totals.Total,
		SuccessfulPosts:  totals.Success,
		FailedPosts:      totals.Failed,
		TotalResponseMs:  totals.TotalResponseMs,
		Posts24h:         posts24h,
		Posts7d:          posts7d,
		State:            acct.State,
		LastError:        acct.LastError,
		LastPostAt:       totals.LastPostAt,
		WarmupTasksTotal: warmupTotal,
		WarmupTasksDone:  warmupDone,
		CollectedAt:      now,
	}

	if totals.Total > 0 {
		m.PostSuccessRate = float64(totals.Success) / float64(totals.Total) * 100
		m.AvgResponseMs = float64(totals.TotalResponseMs) / float64(totals.Total)
	}
	if warmupTotal > 0 {
		m.WarmupProgress = float64(warmupDone) / float64(warmupTotal) * 100
	}

	cut24h := now.Add(-day)
	cut7d := now.Add(-week)
	for _, f := range failures {
		in24h := f.At.After(cut24h)
		in7d := f.At.After(cut7d)
		if in24h {
			m.Errors24h++
		}
		if in7d {
			m.Errors7d++
		}
		if isRateLimitError(f.Text) {
			m.RateLimitHitsTotal++
			if in24h {
				m.RateLimitHits24h++
			}
			if in7d {
				m.RateLimitHits7d++
			}
		}
	}
	if posts24h > 0 {
		m.ErrorRate24h = float64(m.Errors24h) / float64(posts24h) * 100
	}
	if posts7d > 0 {
		m.ErrorRate7d = float64(m.Errors7d) / float64(posts7d) * 100
	}
	if isLoginChallengeError(acct.LastError) {
		m.LoginChallenges = 1
	}
	return m, nil
}

// CollectSwarmMetrics aggregates post outcomes across all of a tenant's
// accounts. A tenant with zero accounts yields an all-zero result.
func (c *Collector) CollectSwarmMetrics(ctx context.Context, tenantID string) (*model.SwarmMetrics, error) {
	accounts, err := c.store.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("collect swarm metrics: %w", err)
	}
	now := c.now().UTC()
	sm := &model.SwarmMetrics{
		TenantID:        tenantID,
		TotalAccounts:   len(accounts),
		AccountsByState: map[model.AccountState]int{},
		TopAccounts:     []model.AccountScoreSummary{},
		BottomAccounts:  []model.AccountScoreSummary{},
		CollectedAt:     now,
	}
	if len(accounts) == 0 {
		return sm, nil
	}

	for _, a := range accounts {
		sm.AccountsByState[a.State]++
	}

	totals, err := c.store.TenantPostTotals(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("collect swarm metrics: %w", err)
	}
	sm.TotalPosts = totals.Total
	sm.SuccessfulPosts = totals.Success
	sm.FailedPosts = totals.Failed
	if totals.Total > 0 {
		sm.PostSuccessRate = float64(totals.Success) / float64(totals.Total) * 100
	}

	posts24h, failed24h, err := c.store.TenantWindowCounts(ctx, tenantID, now.Add(-day))
	if err != nil {
		return nil, fmt.Errorf("collect swarm metrics: %w", err)
	}
	sm.Errors24h = failed24h
	if posts24h > 0 {
		sm.ErrorRate24h = float64(failed24h) / float64(posts24h) * 100
	}

	if sm.AvgHealthScore, err = c.store.AvgScore(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("collect swarm metrics: %w", err)
	}
	if sm.TopAccounts, err = c.store.TopScores(ctx, tenantID, topListSize); err != nil {
		return nil, fmt.Errorf("collect swarm metrics: %w", err)
	}
	if sm.BottomAccounts, err = c.store.BottomScores(ctx, tenantID, topListSize, bottomScoreCutoff); err != nil {
		return nil, fmt.Errorf("collect swarm metrics: %w", err)
	}
	return sm, nil
}

// GetMetricsHistory returns time-bucketed rollups for the last N days.
func (c *Collector) GetMetricsHistory(ctx context.Context, accountID string, days int, g model.Granularity) ([]model.MetricsBucket, error) {
	if days <= 0 {
		days = 7
	}
	if g != model.GranularityWeek {
		g = model.GranularityDay
	}
	since := c.now().UTC().Add(-time.Duration(days) * day)
	buckets, err := c.store.PostBuckets(ctx, accountID, since, g)
	if err != nil {
		return nil, fmt.Errorf("metrics history: %w", err)
	}
	return buckets, nil
}

// GetDailyAggregates returns one bucket per day for the last N days.
func (c *Collector) GetDailyAggregates(ctx context.Context, accountID string, days int) ([]model.MetricsBucket, error) {
	return c.GetMetricsHistory(ctx, accountID, days, model.GranularityDay)
}

// GetWeeklyAggregates returns one bucket per week for the last N weeks.
func (c *Collector) GetWeeklyAggregates(ctx context.Context, accountID string, weeks int) ([]model.MetricsBucket, error) {
	return c.GetMetricsHistory(ctx, accountID, weeks*7, model.GranularityWeek)
}

func isRateLimitError(text string) bool {
	return containsAnyToken(text, rateLimitTokens)
}

func isLoginChallengeError(text string) bool {
	return containsAnyToken(text, loginChallengeTokens)
}

func containsAnyToken(text string, tokens []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
