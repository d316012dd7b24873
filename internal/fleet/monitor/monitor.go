package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/swarmops/fleethealth/internal/fleet/model"
	"github.com/swarmops/fleethealth/internal/fleet/score"
)

// Collector produces point-in-time metrics from the event store.
type Collector interface {
	CollectAccountMetrics(ctx context.Context, accountID string) (*model.AccountMetrics, error)
	CollectSwarmMetrics(ctx context.Context, tenantID string) (*model.SwarmMetrics, error)
}

// AlertService is the slice of the alert manager the monitor needs.
type AlertService interface {
	AutoCreateAlerts(ctx context.Context, accountID string, metrics *model.AccountMetrics) []model.Alert
	GetAccountAlerts(ctx context.Context, accountID string, limit int) ([]model.Alert, error)
	GetActiveAlerts(ctx context.Context, tenantID string, unackedOnly bool) ([]model.Alert, error)
	GetAlertsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Alert, error)
}

// Store is the slice of the persistent store the monitor needs directly.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	ListAccounts(ctx context.Context, tenantID string) ([]model.Account, error)
	UpsertScore(ctx context.Context, accountID string, score int, at time.Time) error
}

// Options tune caching and fan-out. Zero values fall back to defaults.
type Options struct {
	ReportTTL        time.Duration // per-account report cache TTL
	FleetTTL         time.Duration // fleet report cache TTL
	Workers          int           // fleet scan parallelism
	RecentAlertLimit int
}

const (
	defaultReportTTL   = 60 * time.Second
	defaultFleetTTL    = 120 * time.Second
	defaultWorkers     = 8
	defaultAlertLimit  = 10
	problemScoreCutoff = 50
)

// Monitor orchestrates collection, scoring and alerting behind a TTL cache.
type Monitor struct {
	collector Collector
	alerts    AlertService
	store     Store
	cache     Cache
	opts      Options
	now       func() time.Time
}

func New(collector Collector, alerts AlertService, store Store, cache Cache, opts Options) *Monitor {
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = defaultReportTTL
	}
	if opts.FleetTTL <= 0 {
		opts.FleetTTL = defaultFleetTTL
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RecentAlertLimit <= 0 {
		opts.RecentAlertLimit = defaultAlertLimit
	}
	return &Monitor{collector: collector, alerts: alerts, store: store, cache: cache, opts: opts, now: time.Now}
}

func reportKey(accountID string) string { return "health:report:" + accountID }
func fleetKey(tenantID string) string   { return "health:fleet:" + tenantID }

// MonitorAccount returns the account's health report, cache-or-compute.
// A cache hit is returned verbatim; cache failures in either direction are
// soft and never fail the call.
func (m *Monitor) MonitorAccount(ctx context.Context, accountID string) (*model.HealthReport, error) {
	key := reportKey(accountID)
	if cached, err := m.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("report cache read failed; recomputing")
	} else if cached != nil {
		var report model.HealthReport
		if err := json.Unmarshal(cached, &report); err == nil {
			cacheHits.WithLabelValues("account").Inc()
			return &report, nil
		}
		log.Warn().Str("account_id", accountID).Msg("report cache entry malformed; recomputing")
	}
	cacheMisses.WithLabelValues("account").Inc()

	acct, err := m.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	metrics, err := m.collector.CollectAccountMetrics(ctx, accountID)
	if err != nil {
		return nil, err
	}
	breakdown := score.GetHealthScoreBreakdown(metrics)

	created := m.alerts.AutoCreateAlerts(ctx, accountID, metrics)
	alertsCreated.Add(float64(len(created)))
	recent, err := m.alerts.GetAccountAlerts(ctx, accountID, m.opts.RecentAlertLimit)
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	if err := m.store.UpsertScore(ctx, accountID, breakdown.Overall, m.now().UTC()); err != nil {
		return nil, fmt.Errorf("persist score snapshot: %w", err)
	}

	report := &model.HealthReport{
		AccountID:       accountID,
		Name:            acct.Name,
		State:           acct.State,
		Metrics:         *metrics,
		Score:           breakdown,
		Flags:           score.DetectFlags(metrics),
		Recommendations: score.GenerateRecommendations(metrics),
		RecentAlerts:    recent,
		GeneratedAt:     m.now().UTC(),
	}
	m.cacheSet(ctx, key, report, m.opts.ReportTTL)
	return report, nil
}

// MonitorSwarm returns the tenant's fleet report, cache-or-compute. The
// per-account pipeline runs on a bounded worker pool; a failing account is
// logged and skipped so one bad account cannot blank out the fleet view.
func (m *Monitor) MonitorSwarm(ctx context.Context, tenantID string) (*model.FleetHealthReport, error) {
	key := fleetKey(tenantID)
	if cached, err := m.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("fleet cache read failed; recomputing")
	} else if cached != nil {
		var report model.FleetHealthReport
		if err := json.Unmarshal(cached, &report); err == nil {
			cacheHits.WithLabelValues("fleet").Inc()
			return &report, nil
		}
		log.Warn().Str("tenant_id", tenantID).Msg("fleet cache entry malformed; recomputing")
	}
	cacheMisses.WithLabelValues("fleet").Inc()

	start := m.now()
	accounts, err := m.store.ListAccounts(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	swarm, err := m.collector.CollectSwarmMetrics(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("swarm metrics: %w", err)
	}

	reports := m.scanAccounts(ctx, accounts)
	fleetScanDuration.Observe(m.now().Sub(start).Seconds())

	report := &model.FleetHealthReport{
		TenantID:    tenantID,
		Swarm:       *swarm,
		Accounts:    reports,
		GeneratedAt: m.now().UTC(),
	}
	scoreSum := 0
	for _, r := range reports {
		scoreSum += r.Score.Overall
		switch r.Score.Category {
		case model.CategoryExcellent, model.CategoryGood:
			report.HealthyAccounts++
		case model.CategoryPoor, model.CategoryCritical:
			report.AtRiskAccounts++
		}
	}
	if len(reports) > 0 {
		report.AvgScore = int(float64(scoreSum)/float64(len(reports)) + 0.5)
	}
	report.Category = score.CategorizeHealth(report.AvgScore)

	active, err := m.alerts.GetActiveAlerts(ctx, tenantID, false)
	if err != nil {
		return nil, fmt.Errorf("active alerts: %w", err)
	}
	report.ActiveAlerts = active
	report.Summary = fmt.Sprintf("%d accounts scanned: %d healthy, %d at risk, %d active alerts, average score %d (%s)",
		len(reports), report.HealthyAccounts, report.AtRiskAccounts, len(active), report.AvgScore, report.Category)

	m.cacheSet(ctx, key, report, m.opts.FleetTTL)
	return report, nil
}

// scanAccounts runs MonitorAccount for every account on a bounded worker
// pool. Each account's internal pipeline stays sequential; only the fan-out
// across accounts is parallel.
func (m *Monitor) scanAccounts(ctx context.Context, accounts []model.Account) []model.HealthReport {
	jobs := make(chan string)
	results := make(chan *model.HealthReport)

	var wg sync.WaitGroup
	for i := 0; i < m.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				report, err := m.MonitorAccount(ctx, id)
				if err != nil {
					accountScanFailures.Inc()
					log.Error().Err(err).Str("account_id", id).Msg("fleet scan: account skipped")
					continue
				}
				results <- report
			}
		}()
	}
	go func() {
		for _, a := range accounts {
			jobs <- a.ID
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	reports := make([]model.HealthReport, 0, len(accounts))
	for r := range results {
		reports = append(reports, *r)
	}
	// final aggregation is order-independent; sort for stable output
	sort.Slice(reports, func(i, j int) bool { return reports[i].AccountID < reports[j].AccountID })
	return reports
}

func (m *Monitor) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache marshal failed")
		return
	}
	if err := m.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
}
