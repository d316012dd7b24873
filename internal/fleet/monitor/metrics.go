package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleethealth_report_cache_hits_total",
		Help: "Report cache hits by report kind.",
	}, []string{"kind"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleethealth_report_cache_misses_total",
		Help: "Report cache misses by report kind.",
	}, []string{"kind"})

	accountScanFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleethealth_account_scan_failures_total",
		Help: "Accounts skipped during fleet scans due to errors.",
	})

	alertsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleethealth_alerts_created_total",
		Help: "Alerts persisted by automatic rule evaluation.",
	})

	fleetScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fleethealth_fleet_scan_duration_seconds",
		Help:    "Wall time of full fleet scans.",
		Buckets: prometheus.DefBuckets,
	})
)
