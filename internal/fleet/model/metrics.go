package model

import "time"

// AccountMetrics is a point-in-time aggregate over one account's event
// history. It is recomputed on every collection; nothing here is persisted.
// All rates are 0 when their denominator is 0.
type AccountMetrics struct {
	AccountID string `json:"accountId"`

	TotalPosts      int     `json:"totalPosts"`
	SuccessfulPosts int     `json:"successfulPosts"`
	FailedPosts     int     `json:"failedPosts"`
	PostSuccessRate float64 `json:"postSuccessRate"` // percent, 0-100

	AvgResponseMs   float64 `json:"avgResponseMs"`
	TotalResponseMs int64   `json:"totalResponseMs"`

	Posts24h     int     `json:"posts24h"`
	Posts7d      int     `json:"posts7d"`
	Errors24h    int     `json:"errors24h"`
	Errors7d     int     `json:"errors7d"`
	ErrorRate24h float64 `json:"errorRate24h"` // percent of posts in window
	ErrorRate7d  float64 `json:"errorRate7d"`

	RateLimitHits24h   int `json:"rateLimitHits24h"`
	RateLimitHits7d    int `json:"rateLimitHits7d"`
	RateLimitHitsTotal int `json:"rateLimitHitsTotal"`

	// LoginChallenges is 1 when the most recent error text carries a
	// challenge/checkpoint token, else 0.
	LoginChallenges int `json:"loginChallenges"`

	State      AccountState `json:"state"`
	LastError  string       `json:"lastError,omitempty"`
	LastPostAt *time.Time   `json:"lastPostAt,omitempty"`

	WarmupTasksTotal int     `json:"warmupTasksTotal"`
	WarmupTasksDone  int     `json:"warmupTasksDone"`
	WarmupProgress   float64 `json:"warmupProgress"` // percent, 0 when no tasks

	CollectedAt time.Time `json:"collectedAt"`
}

// AccountScoreSummary is a compact entry for top/bottom-5 lists.
type AccountScoreSummary struct {
	AccountID string       `json:"accountId"`
	Name      string       `json:"name"`
	State     AccountState `json:"state"`
	Score     int          `json:"score"`
}

// SwarmMetrics aggregates post outcomes across all accounts of a tenant.
// A tenant with zero accounts yields an all-zero value, not an error.
type SwarmMetrics struct {
	TenantID        string               `json:"tenantId"`
	TotalAccounts   int                  `json:"totalAccounts"`
	AccountsByState map[AccountState]int `json:"accountsByState"`

	TotalPosts      int     `json:"totalPosts"`
	SuccessfulPosts int     `json:"successfulPosts"`
	FailedPosts     int     `json:"failedPosts"`
	PostSuccessRate float64 `json:"postSuccessRate"`

	Errors24h    int     `json:"errors24h"`
	ErrorRate24h float64 `json:"errorRate24h"`

	AvgHealthScore float64               `json:"avgHealthScore"`
	TopAccounts    []AccountScoreSummary `json:"topAccounts"`
	BottomAccounts []AccountScoreSummary `json:"bottomAccounts"`

	CollectedAt time.Time `json:"collectedAt"`
}

// Granularity selects the bucket size for metrics history rollups.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// MetricsBucket is one time-bucketed rollup row of post outcomes.
type MetricsBucket struct {
	BucketStart time.Time `json:"bucketStart"`
	Posts       int       `json:"posts"`
	Successes   int       `json:"successes"`
	Failures    int       `json:"failures"`
	SuccessRate float64   `json:"successRate"`
}
