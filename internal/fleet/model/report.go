package model

import "time"

// HealthCategory labels a score band.
type HealthCategory string

const (
	CategoryExcellent HealthCategory = "excellent"
	CategoryGood      HealthCategory = "good"
	CategoryFair      HealthCategory = "fair"
	CategoryPoor      HealthCategory = "poor"
	CategoryCritical  HealthCategory = "critical"
)

// ScoreBreakdown carries the named sub-scores used for UI display.
type ScoreBreakdown struct {
	SuccessRateScore float64 `json:"successRateScore"`
	ErrorScore       float64 `json:"errorScore"`
	RateLimitScore   float64 `json:"rateLimitScore"`
	StateScore       float64 `json:"stateScore"`
	WarmupScore      float64 `json:"warmupScore"`
}

// HealthScoreBreakdown is the full derived scoring result for one account.
// Overall, Engagement and Risk are integers clamped to [0,100]; Risk is
// higher-is-worse.
type HealthScoreBreakdown struct {
	Overall     int            `json:"overall"`
	Engagement  int            `json:"engagement"`
	Reliability int            `json:"reliability"`
	Risk        int            `json:"risk"`
	Category    HealthCategory `json:"category"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
}

// HealthReport is the per-account response object, cached with a short TTL.
type HealthReport struct {
	AccountID       string               `json:"accountId"`
	Name            string               `json:"name"`
	State           AccountState         `json:"state"`
	Metrics         AccountMetrics       `json:"metrics"`
	Score           HealthScoreBreakdown `json:"score"`
	Flags           []string             `json:"flags"`
	Recommendations []string             `json:"recommendations"`
	RecentAlerts    []Alert              `json:"recentAlerts"`
	GeneratedAt     time.Time            `json:"generatedAt"`
}

// FleetHealthReport is the tenant-wide response object.
type FleetHealthReport struct {
	TenantID        string         `json:"tenantId"`
	Swarm           SwarmMetrics   `json:"swarm"`
	Accounts        []HealthReport `json:"accounts"`
	AvgScore        int            `json:"avgScore"`
	Category        HealthCategory `json:"category"`
	HealthyAccounts int            `json:"healthyAccounts"` // excellent or good
	AtRiskAccounts  int            `json:"atRiskAccounts"`  // poor or critical
	ActiveAlerts    []Alert        `json:"activeAlerts"`
	Summary         string         `json:"summary"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}

// DailyReport composes the fleet view with the last 24h of alerts.
type DailyReport struct {
	TenantID        string                `json:"tenantId"`
	Fleet           FleetHealthReport     `json:"fleet"`
	NewAlerts       []Alert               `json:"newAlerts"`
	TopPerformers   []AccountScoreSummary `json:"topPerformers"`
	ProblemAccounts []AccountScoreSummary `json:"problemAccounts"`
	Summary         string                `json:"summary"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// WeeklyTrends holds week-over-week deltas. Values are always zero in the
// current design; historical comparison is out of scope.
type WeeklyTrends struct {
	ScoreDelta       float64 `json:"scoreDelta"`
	PostDelta        float64 `json:"postDelta"`
	SuccessRateDelta float64 `json:"successRateDelta"`
}

// WeeklyReport is recomputed from fresh metrics, bypassing the fleet cache.
type WeeklyReport struct {
	TenantID        string                `json:"tenantId"`
	TotalAccounts   int                   `json:"totalAccounts"`
	ActiveAccounts  int                   `json:"activeAccounts"`
	TotalPosts      int                   `json:"totalPosts"`
	PostSuccessRate float64               `json:"postSuccessRate"`
	AvgResponseMs   float64               `json:"avgResponseMs"`
	AvgScore        int                   `json:"avgScore"`
	TopPerformers   []AccountScoreSummary `json:"topPerformers"`
	ProblemAccounts []AccountScoreSummary `json:"problemAccounts"`
	Recommendations []string              `json:"recommendations"`
	Trends          WeeklyTrends          `json:"trends"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}
