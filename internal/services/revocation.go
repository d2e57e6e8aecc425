package services

import (
	"context"
	"fmt"
	"time"

	"github.com/spotlog/backend/internal/models"
)

// RevocationService ends every session of a user at once. Reuse detection
// is its only caller inside the request path; operators reach it through
// cmd/revoke-sessions.
type RevocationService struct {
	sessions *SessionStore
	alerts   AlertQueue
	metrics  *AuthMetrics
	now      func() time.Time
}

func NewRevocationService(sessions *SessionStore, alerts AlertQueue, metrics *AuthMetrics) *RevocationService {
	if metrics == nil {
		metrics = NewAuthMetrics()
	}
	return &RevocationService{
		sessions: sessions,
		alerts:   alerts,
		metrics:  metrics,
		now:      time.Now,
	}
}

// RevokeAll revokes every active session of userID with reason and returns
// how many rows changed.
func (s *RevocationService) RevokeAll(ctx context.Context, userID uint, reason models.RevokedReason) (int64, error) {
	revoked, err := s.sessions.RevokeAllForUser(ctx, userID, reason, s.now())
	if err != nil {
		return 0, fmt.Errorf("revoke sessions of user %d: %w", userID, err)
	}

	s.metrics.SessionsRevoked.Add(revoked)

	alert := newAlert(LevelWarning, EventSessionsRevoked, "all sessions revoked", userID, "", ClientInfo{})
	enqueueAlert(s.alerts, alert.withExtra("reason", string(reason)).withExtra("count", revoked))

	return revoked, nil
}

// ListActive returns the sessions of userID that can still be rotated.
func (s *RevocationService) ListActive(ctx context.Context, userID uint) ([]models.UserSession, error) {
	return s.sessions.ListActive(ctx, userID, s.now())
}
