package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports whether the database answers and how alerts are queued.
type HealthHandler struct {
	db     *gorm.DB
	alerts services.AlertQueue
}

func NewHealthHandler(db *gorm.DB, alerts services.AlertQueue) *HealthHandler {
	return &HealthHandler{db: db, alerts: alerts}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "unreachable"
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.alerts != nil && h.alerts.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "spotlog-auth",
		"components": gin.H{
			"database":   dbStatus,
			"alert_mode": queueMode,
		},
	})
}
