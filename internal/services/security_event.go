package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	EventLoginSucceeded  = "login_succeeded"
	EventLoginFailed     = "login_failed"
	EventRegistered      = "registered"
	EventSessionRotated  = "session_rotated"
	EventReuseDetected   = "reuse_detected"
	EventLogout          = "logout"
	EventSessionsRevoked = "sessions_revoked"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// SecurityAlert is one audit event on its way to the security_events table.
// It is the payload of the security:alert task.
type SecurityAlert struct {
	Level      string                 `json:"level"`
	Event      string                 `json:"event"`
	Message    string                 `json:"message"`
	UserID     *uint                  `json:"user_id,omitempty"`
	SessionID  string                 `json:"session_id,omitempty"`
	IP         string                 `json:"ip,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func newAlert(level, event, message string, userID uint, sessionID string, client ClientInfo) *SecurityAlert {
	alert := &SecurityAlert{
		Level:      level,
		Event:      event,
		Message:    message,
		SessionID:  sessionID,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		OccurredAt: time.Now(),
	}
	if userID != 0 {
		id := userID
		alert.UserID = &id
	}
	return alert
}

func (a *SecurityAlert) withExtra(key string, value interface{}) *SecurityAlert {
	if a.Extra == nil {
		a.Extra = make(map[string]interface{})
	}
	a.Extra[key] = value
	return a
}

type SecurityEventService struct {
	db *gorm.DB
}

func NewSecurityEventService(db *gorm.DB) *SecurityEventService {
	return &SecurityEventService{db: db}
}

// Record logs the alert and persists it as a SecurityEvent.
func (s *SecurityEventService) Record(ctx context.Context, alert *SecurityAlert) error {
	if alert.OccurredAt.IsZero() {
		alert.OccurredAt = time.Now()
	}

	logEvent(alert)

	var extra string
	if len(alert.Extra) > 0 {
		if b, err := json.Marshal(alert.Extra); err == nil {
			extra = string(b)
		}
	}

	event := &models.SecurityEvent{
		Level:     alert.Level,
		Event:     alert.Event,
		Message:   alert.Message,
		UserID:    alert.UserID,
		SessionID: alert.SessionID,
		IP:        alert.IP,
		UserAgent: alert.UserAgent,
		Extra:     extra,
		CreatedAt: alert.OccurredAt.UTC(),
	}
	return s.db.WithContext(ctx).Create(event).Error
}

func logEvent(alert *SecurityAlert) {
	var e *zerolog.Event
	switch alert.Level {
	case LevelError:
		e = logger.Error()
	case LevelWarning:
		e = logger.Warn()
	default:
		e = logger.Info()
	}
	e = e.Str("event", alert.Event).Str("ip", alert.IP)
	if alert.UserID != nil {
		e = e.Uint("user_id", *alert.UserID)
	}
	if alert.SessionID != "" {
		e = e.Str("session_id", alert.SessionID)
	}
	if len(alert.Extra) > 0 {
		e = e.Fields(alert.Extra)
	}
	e.Msg(alert.Message)
}

// ListForUser returns the most recent events of userID, newest first.
func (s *SecurityEventService) ListForUser(ctx context.Context, userID uint, limit int) ([]models.SecurityEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var events []models.SecurityEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// Cleanup deletes events created before cutoff and returns how many went.
func (s *SecurityEventService) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.SecurityEvent{})
	return result.RowsAffected, result.Error
}
