package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/swarmops/fleethealth/internal/fleet/model"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

type memStore struct {
	accounts map[string]*model.Account
	totals   map[string]model.PostTotals
	counts   map[string]int // posts per account, returned for any window
	failures map[string][]model.TimedError
	warmups  map[string][2]int // done, total
	avgScore float64
	top      []model.AccountScoreSummary
	bottom   []model.AccountScoreSummary
	buckets  []model.MetricsBucket
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*model.Account{},
		totals:   map[string]model.PostTotals{},
		counts:   map[string]int{},
		failures: map[string][]model.TimedError{},
		warmups:  map[string][2]int{},
	}
}

func (m *memStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	return a, nil
}

func (m *memStore) ListAccounts(ctx context.Context, tenantID string) ([]model.Account, error) {
	out := []model.Account{}
	for _, a := range m.accounts {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) PostTotals(ctx context.Context, id string) (model.PostTotals, error) {
	return m.totals[id], nil
}

func (m *memStore) PostCountSince(ctx context.Context, id string, since time.Time) (int, error) {
	return m.counts[id], nil
}

func (m *memStore) FailedPostErrors(ctx context.Context, id string) ([]model.TimedError, error) {
	return m.failures[id], nil
}

func (m *memStore) WarmupCounts(ctx context.Context, id string) (int, int, error) {
	w := m.warmups[id]
	return w[0], w[1], nil
}

func (m *memStore) TenantPostTotals(ctx context.Context, tenantID string) (model.PostTotals, error) {
	return m.totals["tenant:"+tenantID], nil
}

func (m *memStore) TenantWindowCounts(ctx context.Context, tenantID string, since time.Time) (int, int, error) {
	return m.counts["tenant:"+tenantID+":posts"], m.counts["tenant:"+tenantID+":failed"], nil
}

func (m *memStore) TopScores(ctx context.Context, tenantID string, limit int) ([]model.AccountScoreSummary, error) {
	return m.top, nil
}

func (m *memStore) BottomScores(ctx context.Context, tenantID string, limit, below int) ([]model.AccountScoreSummary, error) {
	return m.bottom, nil
}

func (m *memStore) AvgScore(ctx context.Context, tenantID string) (float64, error) {
	return m.avgScore, nil
}

func (m *memStore) PostBuckets(ctx context.Context, id string, since time.Time, g model.Granularity) ([]model.MetricsBucket, error) {
	return m.buckets, nil
}

func newTestCollector(store Store) *Collector {
	c := NewCollector(store)
	c.now = func() time.Time { return testNow }
	return c
}

func TestCollectAccountMetrics(t *testing.T) {
	store := newMemStore()
	last := testNow.Add(-time.Hour)
	store.accounts["acc-1"] = &model.Account{ID: "acc-1", TenantID: "t1", Name: "writer-1", State: model.StateActive}
	store.totals["acc-1"] = model.PostTotals{Total: 100, Success: 90, Failed: 10, TotalResponseMs: 150000, LastPostAt: &last}
	store.counts["acc-1"] = 20
	store.failures["acc-1"] = []model.TimedError{
		{Text: "HTTP 429 Too Many Requests", At: testNow.Add(-2 * time.Hour)},
		{Text: "connection reset", At: testNow.Add(-3 * time.Hour)},
		{Text: "Rate limit exceeded", At: testNow.Add(-3 * 24 * time.Hour)},
		{Text: "timeout", At: testNow.Add(-10 * 24 * time.Hour)},
	}
	store.warmups["acc-1"] = [2]int{3, 4}

	m, err := newTestCollector(store).CollectAccountMetrics(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if m.PostSuccessRate != 90 {
		t.Fatalf("success rate: got %v, want 90", m.PostSuccessRate)
	}
	if m.AvgResponseMs != 1500 {
		t.Fatalf("avg response: got %v, want 1500", m.AvgResponseMs)
	}
	if m.Errors24h != 2 || m.Errors7d != 3 {
		t.Fatalf("error windows: 24h=%d 7d=%d", m.Errors24h, m.Errors7d)
	}
	if m.RateLimitHits24h != 1 || m.RateLimitHits7d != 2 || m.RateLimitHitsTotal != 2 {
		t.Fatalf("rate limit hits: 24h=%d 7d=%d total=%d", m.RateLimitHits24h, m.RateLimitHits7d, m.RateLimitHitsTotal)
	}
	if m.ErrorRate24h != 10 {
		t.Fatalf("error rate 24h: got %v, want 10", m.ErrorRate24h)
	}
	if m.WarmupProgress != 75 {
		t.Fatalf("warmup progress: got %v, want 75", m.WarmupProgress)
	}
	if m.LoginChallenges != 0 {
		t.Fatalf("login challenges: got %d, want 0", m.LoginChallenges)
	}
}

func TestCollectAccountMetrics_ZeroDenominators(t *testing.T) {
	store := newMemStore()
	store.accounts["acc-new"] = &model.Account{ID: "acc-new", TenantID: "t1", State: model.StateWarmingUp}

	m, err := newTestCollector(store).CollectAccountMetrics(context.Background(), "acc-new")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if m.PostSuccessRate != 0 || m.ErrorRate24h != 0 || m.AvgResponseMs != 0 || m.WarmupProgress != 0 {
		t.Fatalf("zero-history account should have zero rates: %+v", m)
	}
}

func TestCollectAccountMetrics_NotFound(t *testing.T) {
	_, err := newTestCollector(newMemStore()).CollectAccountMetrics(context.Background(), "ghost")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollectAccountMetrics_LoginChallengeFromLastError(t *testing.T) {
	store := newMemStore()
	store.accounts["acc-1"] = &model.Account{ID: "acc-1", TenantID: "t1", State: model.StateActive, LastError: "Checkpoint required"}

	m, err := newTestCollector(store).CollectAccountMetrics(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if m.LoginChallenges != 1 {
		t.Fatalf("login challenges: got %d, want 1", m.LoginChallenges)
	}
}

func TestCollectSwarmMetrics(t *testing.T) {
	store := newMemStore()
	store.accounts["a1"] = &model.Account{ID: "a1", TenantID: "t1", State: model.StateActive}
	store.accounts["a2"] = &model.Account{ID: "a2", TenantID: "t1", State: model.StateActive}
	store.accounts["a3"] = &model.Account{ID: "a3", TenantID: "t1", State: model.StatePaused}
	store.accounts["other"] = &model.Account{ID: "other", TenantID: "t2", State: model.StateActive}
	store.totals["tenant:t1"] = model.PostTotals{Total: 200, Success: 180, Failed: 20}
	store.counts["tenant:t1:posts"] = 40
	store.counts["tenant:t1:failed"] = 4
	store.avgScore = 82.5
	store.top = []model.AccountScoreSummary{{AccountID: "a1", Score: 95}}

	sm, err := newTestCollector(store).CollectSwarmMetrics(context.Background(), "t1")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if sm.TotalAccounts != 3 {
		t.Fatalf("total accounts: got %d, want 3", sm.TotalAccounts)
	}
	if sm.AccountsByState[model.StateActive] != 2 || sm.AccountsByState[model.StatePaused] != 1 {
		t.Fatalf("accounts by state: %v", sm.AccountsByState)
	}
	if sm.PostSuccessRate != 90 {
		t.Fatalf("success rate: got %v, want 90", sm.PostSuccessRate)
	}
	if sm.ErrorRate24h != 10 {
		t.Fatalf("error rate 24h: got %v, want 10", sm.ErrorRate24h)
	}
	if sm.AvgHealthScore != 82.5 {
		t.Fatalf("avg score: got %v", sm.AvgHealthScore)
	}
	if len(sm.TopAccounts) != 1 {
		t.Fatalf("top accounts: %v", sm.TopAccounts)
	}
}

func TestCollectSwarmMetrics_EmptyTenant(t *testing.T) {
	sm, err := newTestCollector(newMemStore()).CollectSwarmMetrics(context.Background(), "empty")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if sm.TotalAccounts != 0 || sm.TotalPosts != 0 || sm.PostSuccessRate != 0 {
		t.Fatalf("empty tenant should yield zeros: %+v", sm)
	}
	if sm.AccountsByState == nil || sm.TopAccounts == nil || sm.BottomAccounts == nil {
		t.Fatalf("empty tenant collections should be non-nil: %+v", sm)
	}
}

func TestIsRateLimitError(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"HTTP 429 Too Many Requests", true},
		{"RateLimit exceeded", true},
		{"rate limit hit, backing off", true},
		{"connection refused", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isRateLimitError(tc.text); got != tc.want {
			t.Fatalf("isRateLimitError(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}
