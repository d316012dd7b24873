package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/swarmops/fleethealth/internal/config"
	"github.com/swarmops/fleethealth/internal/fleet/alerting"
	"github.com/swarmops/fleethealth/internal/fleet/api"
	"github.com/swarmops/fleethealth/internal/fleet/database"
	"github.com/swarmops/fleethealth/internal/fleet/metrics"
	"github.com/swarmops/fleethealth/internal/fleet/monitor"
	"github.com/swarmops/fleethealth/internal/middleware"
)

func main() {
	log.Info().Msg("Starting fleethealth api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := database.New(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	rules, err := alerting.LoadRulesWithOverrides(cfg.Alerting.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.Alerting.RulesFile).Msg("failed to load alert rules")
	}

	collector := metrics.NewCollector(db)
	alertMgr := alerting.NewManager(db, &alerting.LogNotifier{}, rules)
	mon := monitor.New(collector, alertMgr, db, monitor.NewRedisCache(rdb), monitor.Options{
		ReportTTL:        parseDuration(cfg.Monitor.ReportTTL, 60*time.Second),
		FleetTTL:         parseDuration(cfg.Monitor.FleetTTL, 120*time.Second),
		Workers:          cfg.Monitor.Workers,
		RecentAlertLimit: cfg.Monitor.RecentAlertLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scanInterval := parseDuration(cfg.Monitor.ScanInterval, 5*time.Minute)
	go startFleetScanner(ctx, mon, cfg.Monitor.Tenants, scanInterval)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.Use(middleware.Authentication(cfg.Server.AuthToken))
	api.NewApi(router, mon, alertMgr, collector)

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start fleethealth api server failed.")
	}
	log.Info().Msg("fleethealth api server exit...")
}

// startFleetScanner periodically recomputes fleet reports for the configured
// tenants so alerts fire without waiting for an API request.
func startFleetScanner(ctx context.Context, mon *monitor.Monitor, tenants []string, interval time.Duration) {
	if len(tenants) == 0 {
		log.Info().Msg("fleet scanner disabled: no tenants configured")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, tenant := range tenants {
				if _, err := mon.MonitorSwarm(ctx, tenant); err != nil {
					log.Error().Err(err).Str("tenant_id", tenant).Msg("scheduled fleet scan failed")
				}
			}
		}
	}
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
