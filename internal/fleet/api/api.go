package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/swarmops/fleethealth/internal/fleet/alerting"
	"github.com/swarmops/fleethealth/internal/fleet/metrics"
	"github.com/swarmops/fleethealth/internal/fleet/model"
	"github.com/swarmops/fleethealth/internal/fleet/monitor"
)

// Api exposes the monitoring and alert endpoints consumed by dashboards
// and schedulers.
type Api struct {
	Monitor   *monitor.Monitor
	Alerts    *alerting.Manager
	Collector *metrics.Collector
}

func NewApi(router *gin.Engine, mon *monitor.Monitor, alerts *alerting.Manager, collector *metrics.Collector) *Api {
	api := &Api{Monitor: mon, Alerts: alerts, Collector: collector}
	api.setupRouters(router)
	return api
}

func (api *Api) setupRouters(router *gin.Engine) {
	router.GET("/v1/accounts/:accountID/health", api.GetAccountHealth)
	router.GET("/v1/accounts/:accountID/alerts", api.GetAccountAlerts)
	router.GET("/v1/accounts/:accountID/metrics/history", api.GetMetricsHistory)
	router.GET("/v1/tenants/:tenantID/health", api.GetFleetHealth)
	router.GET("/v1/tenants/:tenantID/reports/daily", api.GetDailyReport)
	router.GET("/v1/tenants/:tenantID/reports/weekly", api.GetWeeklyReport)
	router.GET("/v1/tenants/:tenantID/alerts", api.GetTenantAlerts)
	router.GET("/v1/tenants/:tenantID/alerts/stats", api.GetAlertStats)
	router.POST("/v1/alerts/:alertID/acknowledge", api.AcknowledgeAlert)
	router.POST("/v1/alerts/:alertID/resolve", api.ResolveAlert)
}

func errorResponse(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNotFound) {
		c.JSON(http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": err.Error()}})
		return
	}
	c.JSON(http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": "INTERNAL_ERROR", "message": err.Error()}})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, map[string]any{"error": map[string]any{"code": "INVALID_PARAMETER", "message": msg}})
}

func (api *Api) GetAccountHealth(c *gin.Context) {
	report, err := api.Monitor.MonitorAccount(c.Request.Context(), c.Param("accountID"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (api *Api) GetAccountAlerts(c *gin.Context) {
	limit := 20
	if s := strings.TrimSpace(c.Query("limit")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 100 {
			badRequest(c, "limit must be 1-100")
			return
		}
		limit = v
	}
	alerts, err := api.Alerts.GetAccountAlerts(c.Request.Context(), c.Param("accountID"), limit)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"items": alerts})
}

func (api *Api) GetMetricsHistory(c *gin.Context) {
	days := 7
	if s := strings.TrimSpace(c.Query("days")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 90 {
			badRequest(c, "days must be 1-90")
			return
		}
		days = v
	}
	g := model.Granularity(strings.TrimSpace(c.Query("granularity")))
	if g == "" {
		g = model.GranularityDay
	}
	if g != model.GranularityDay && g != model.GranularityWeek {
		badRequest(c, "granularity must be day or week")
		return
	}
	buckets, err := api.Collector.GetMetricsHistory(c.Request.Context(), c.Param("accountID"), days, g)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"items": buckets})
}

func (api *Api) GetFleetHealth(c *gin.Context) {
	report, err := api.Monitor.MonitorSwarm(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (api *Api) GetDailyReport(c *gin.Context) {
	report, err := api.Monitor.GenerateDailyReport(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (api *Api) GetWeeklyReport(c *gin.Context) {
	report, err := api.Monitor.GenerateWeeklyReport(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (api *Api) GetTenantAlerts(c *gin.Context) {
	unackedOnly := strings.EqualFold(c.Query("unacknowledged"), "true")
	alerts, err := api.Alerts.GetActiveAlerts(c.Request.Context(), c.Param("tenantID"), unackedOnly)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"items": alerts})
}

func (api *Api) GetAlertStats(c *gin.Context) {
	stats, err := api.Alerts.GetAlertStats(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (api *Api) AcknowledgeAlert(c *gin.Context) {
	alert, err := api.Alerts.AcknowledgeAlert(c.Request.Context(), c.Param("alertID"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

type resolveRequest struct {
	Note string `json:"note"`
}

func (api *Api) ResolveAlert(c *gin.Context) {
	var req resolveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid JSON body")
			return
		}
	}
	alert, err := api.Alerts.ResolveAlert(c.Request.Context(), c.Param("alertID"), req.Note)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}
