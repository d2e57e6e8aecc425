package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

type MetricsHandler struct {
	db      *gorm.DB
	metrics *services.AuthMetrics
	alerts  services.AlertQueue
}

func NewMetricsHandler(db *gorm.DB, metrics *services.AuthMetrics, alerts services.AlertQueue) *MetricsHandler {
	return &MetricsHandler{db: db, metrics: metrics, alerts: alerts}
}

// Metrics returns Prometheus-compatible text format metrics.
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "spotlog_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "spotlog_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "spotlog_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "spotlog_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "spotlog_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "spotlog_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
			writeGauge(&b, "spotlog_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
		}

		var active int64
		h.db.Model(&models.UserSession{}).
			Where("revoked = ? AND expires_at > ?", false, time.Now().UTC()).
			Count(&active)
		writeGauge(&b, "spotlog_sessions_active", "Sessions that can still be rotated", float64(active))
	}

	// -- Queue metrics --
	queueAsync := 0.0
	if h.alerts != nil && h.alerts.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "spotlog_alert_queue_async_enabled", "Whether security alerts go through Redis (1=yes, 0=no)", queueAsync)

	// -- Auth counters --
	if h.metrics != nil {
		for _, counter := range h.metrics.Snapshot() {
			writeCounter(&b, counter.Name, counter.Help, float64(counter.Value))
		}
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	writeMetric(b, "gauge", name, help, value)
}

func writeCounter(b *strings.Builder, name, help string, value float64) {
	writeMetric(b, "counter", name, help, value)
}

func writeMetric(b *strings.Builder, kind, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
