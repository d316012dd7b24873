package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarmops/fleethealth/internal/fleet/model"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

type fakeCollector struct {
	mu       sync.Mutex
	metrics  map[string]*model.AccountMetrics
	failing  map[string]bool
	calls    map[string]int
	swarm    *model.SwarmMetrics
	swarmErr error
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{
		metrics: map[string]*model.AccountMetrics{},
		failing: map[string]bool{},
		calls:   map[string]int{},
		swarm:   &model.SwarmMetrics{CollectedAt: testNow},
	}
}

func (f *fakeCollector) CollectAccountMetrics(ctx context.Context, accountID string) (*model.AccountMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[accountID]++
	if f.failing[accountID] {
		return nil, fmt.Errorf("collect %s: store down", accountID)
	}
	m, ok := f.metrics[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeCollector) CollectSwarmMetrics(ctx context.Context, tenantID string) (*model.SwarmMetrics, error) {
	if f.swarmErr != nil {
		return nil, f.swarmErr
	}
	cp := *f.swarm
	cp.TenantID = tenantID
	return &cp, nil
}

func (f *fakeCollector) callCount(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[accountID]
}

type fakeAlerts struct {
	mu     sync.Mutex
	active []model.Alert
	since  []model.Alert
	auto   map[string][]model.Alert
}

func (f *fakeAlerts) AutoCreateAlerts(ctx context.Context, accountID string, metrics *model.AccountMetrics) []model.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auto[accountID]
}

func (f *fakeAlerts) GetAccountAlerts(ctx context.Context, accountID string, limit int) ([]model.Alert, error) {
	return []model.Alert{}, nil
}

func (f *fakeAlerts) GetActiveAlerts(ctx context.Context, tenantID string, unackedOnly bool) ([]model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeAlerts) GetAlertsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.since, nil
}

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	scores   map[string]int
	scoreErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*model.Account{}, scores: map[string]int{}}
}

func (f *fakeStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
	}
	return a, nil
}

func (f *fakeStore) ListAccounts(ctx context.Context, tenantID string) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Account{}
	for _, a := range f.accounts {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertScore(ctx context.Context, accountID string, score int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scoreErr != nil {
		return f.scoreErr
	}
	f.scores[accountID] = score
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[key], nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func goodMetrics(accountID string) *model.AccountMetrics {
	return &model.AccountMetrics{
		AccountID:       accountID,
		TotalPosts:      100,
		SuccessfulPosts: 95,
		PostSuccessRate: 95,
		AvgResponseMs:   900,
		State:           model.StateActive,
		CollectedAt:     testNow,
	}
}

type fixture struct {
	monitor   *Monitor
	collector *fakeCollector
	alerts    *fakeAlerts
	store     *fakeStore
	cache     *memCache
}

func newFixture() *fixture {
	collector := newFakeCollector()
	alerts := &fakeAlerts{auto: map[string][]model.Alert{}}
	store := newFakeStore()
	cache := newMemCache()
	mon := New(collector, alerts, store, cache, Options{})
	mon.now = func() time.Time { return testNow }
	return &fixture{monitor: mon, collector: collector, alerts: alerts, store: store, cache: cache}
}

func (f *fixture) addAccount(id, tenant string) {
	f.store.accounts[id] = &model.Account{ID: id, TenantID: tenant, Name: "acct " + id, State: model.StateActive}
	f.collector.metrics[id] = goodMetrics(id)
}

func TestMonitorAccount(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")

	report, err := f.monitor.MonitorAccount(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, "acc-1", report.AccountID)
	assert.Equal(t, model.StateActive, report.State)
	assert.Equal(t, model.CategoryExcellent, report.Score.Category)
	assert.NotEmpty(t, report.Flags)
	assert.NotEmpty(t, report.Recommendations)
	assert.Equal(t, report.Score.Overall, f.store.scores["acc-1"], "score snapshot persisted")
}

func TestMonitorAccount_CacheHit(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	ctx := context.Background()

	first, err := f.monitor.MonitorAccount(ctx, "acc-1")
	require.NoError(t, err)
	second, err := f.monitor.MonitorAccount(ctx, "acc-1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.collector.callCount("acc-1"), "second call served from cache")
	assert.Equal(t, first.Score.Overall, second.Score.Overall)
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt))
}

func TestMonitorAccount_CacheFailOpen(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.cache.getErr = errors.New("redis down")

	_, err := f.monitor.MonitorAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	_, err = f.monitor.MonitorAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.collector.callCount("acc-1"), "broken cache recomputes every time")
}

func TestMonitorAccount_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.monitor.MonitorAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestMonitorAccount_ScorePersistFailure(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.store.scoreErr = errors.New("disk full")

	_, err := f.monitor.MonitorAccount(context.Background(), "acc-1")
	require.Error(t, err)
}

func TestMonitorSwarm(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.addAccount("acc-2", "t1")
	f.addAccount("acc-3", "t1")
	f.collector.metrics["acc-3"].State = model.StateBanned

	report, err := f.monitor.MonitorSwarm(context.Background(), "t1")
	require.NoError(t, err)

	assert.Len(t, report.Accounts, 3)
	assert.Equal(t, 2, report.HealthyAccounts)
	assert.Equal(t, 1, report.AtRiskAccounts)
	assert.NotEmpty(t, report.Summary)
	// stable ordering regardless of worker completion order
	assert.Equal(t, "acc-1", report.Accounts[0].AccountID)
	assert.Equal(t, "acc-3", report.Accounts[2].AccountID)
}

func TestMonitorSwarm_PartialFailure(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.addAccount("acc-2", "t1")
	f.addAccount("acc-3", "t1")
	f.collector.failing["acc-2"] = true

	report, err := f.monitor.MonitorSwarm(context.Background(), "t1")
	require.NoError(t, err, "one bad account must not fail the fleet scan")
	assert.Len(t, report.Accounts, 2)
	for _, r := range report.Accounts {
		assert.NotEqual(t, "acc-2", r.AccountID)
	}
}

func TestMonitorSwarm_CacheHit(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	ctx := context.Background()

	_, err := f.monitor.MonitorSwarm(ctx, "t1")
	require.NoError(t, err)
	_, err = f.monitor.MonitorSwarm(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.collector.callCount("acc-1"), "second fleet scan served from cache")
}

func TestMonitorSwarm_EmptyTenant(t *testing.T) {
	f := newFixture()
	report, err := f.monitor.MonitorSwarm(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, report.Accounts)
	assert.Equal(t, 0, report.AvgScore)
	assert.Equal(t, model.CategoryCritical, report.Category)
}

func TestGenerateDailyReport(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.addAccount("acc-2", "t1")
	f.collector.metrics["acc-2"].State = model.StateBanned
	f.alerts.since = []model.Alert{{ID: "al-1", TenantID: "t1", Type: model.AlertAccountBanned}}

	report, err := f.monitor.GenerateDailyReport(context.Background(), "t1")
	require.NoError(t, err)

	assert.Len(t, report.NewAlerts, 1)
	require.NotEmpty(t, report.TopPerformers)
	assert.Equal(t, "acc-1", report.TopPerformers[0].AccountID)
	require.Len(t, report.ProblemAccounts, 1)
	assert.Equal(t, "acc-2", report.ProblemAccounts[0].AccountID)
	assert.NotEmpty(t, report.Summary)
}

func TestGenerateWeeklyReport(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.addAccount("acc-2", "t1")
	f.store.accounts["acc-2"].State = model.StateBanned
	f.collector.metrics["acc-2"].State = model.StateBanned
	f.collector.metrics["acc-2"].PostSuccessRate = 40
	f.collector.metrics["acc-2"].SuccessfulPosts = 40

	report, err := f.monitor.GenerateWeeklyReport(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalAccounts)
	assert.Equal(t, 1, report.ActiveAccounts)
	assert.Equal(t, 200, report.TotalPosts)
	require.Len(t, report.ProblemAccounts, 1)
	assert.Equal(t, "acc-2", report.ProblemAccounts[0].AccountID)
	assert.NotEmpty(t, report.Recommendations)
	assert.Zero(t, report.Trends.ScoreDelta)
	assert.Zero(t, report.Trends.PostDelta)
}

func TestGenerateWeeklyReport_SkipsFailingAccounts(t *testing.T) {
	f := newFixture()
	f.addAccount("acc-1", "t1")
	f.addAccount("acc-2", "t1")
	f.collector.failing["acc-2"] = true

	report, err := f.monitor.GenerateWeeklyReport(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalAccounts)
	assert.Equal(t, 100, report.TotalPosts, "failed account excluded from aggregates")
}
