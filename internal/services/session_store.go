package services

import (
	"context"
	"errors"
	"time"

	"github.com/spotlog/backend/internal/models"
	"gorm.io/gorm"
)

// SessionStore persists session records in UTC. Every state change it issues
// is a conditional UPDATE guarded by revoked = false, so a revoked row is
// never written again; the affected-row count tells the caller whether it won.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *SessionStore) WithTx(tx *gorm.DB) *SessionStore {
	return &SessionStore{db: tx}
}

// Transaction runs fn in a transaction bound to ctx. A cancelled context
// rolls the transaction back.
func (s *SessionStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Create inserts a new active session. Timestamps are stored in UTC.
func (s *SessionStore) Create(ctx context.Context, session *models.UserSession) error {
	session.IssuedAt = session.IssuedAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()
	if session.LastUsedAt != nil {
		t := session.LastUsedAt.UTC()
		session.LastUsedAt = &t
	}
	return s.db.WithContext(ctx).Create(session).Error
}

// FindByID returns the session with id, or nil when there is none.
func (s *SessionStore) FindByID(ctx context.Context, id string) (*models.UserSession, error) {
	var session models.UserSession
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkRotated revokes the session as rotated and links its successor, but
// only while the row is active and still holds refreshHash.
func (s *SessionStore) MarkRotated(ctx context.Context, id, refreshHash, successorID string, now time.Time) (int64, error) {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND revoked = ? AND refresh_token_hash = ?", id, false, refreshHash).
		Updates(map[string]interface{}{
			"revoked":                true,
			"revoked_at":             now,
			"revoked_reason":         models.RevokedRotated,
			"last_used_at":           now,
			"replaced_by_session_id": successorID,
		})
	return result.RowsAffected, result.Error
}

// RevokeIfCurrent revokes one session with reason when it is active and
// holds refreshHash.
func (s *SessionStore) RevokeIfCurrent(ctx context.Context, id, refreshHash string, reason models.RevokedReason, now time.Time) (int64, error) {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND revoked = ? AND refresh_token_hash = ?", id, false, refreshHash).
		Updates(map[string]interface{}{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// RevokeOwned revokes one active session of userID with reason, without a
// refresh credential. Logout uses it when only the access credential arrives.
func (s *SessionStore) RevokeOwned(ctx context.Context, id string, userID uint, reason models.RevokedReason, now time.Time) (int64, error) {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked = ?", id, userID, false).
		Updates(map[string]interface{}{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// RevokeAllForUser revokes every active session of userID with reason.
func (s *SessionStore) RevokeAllForUser(ctx context.Context, userID uint, reason models.RevokedReason, now time.Time) (int64, error) {
	now = now.UTC()
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{
			"revoked":        true,
			"revoked_at":     now,
			"revoked_reason": reason,
		})
	return result.RowsAffected, result.Error
}

// ListActive returns the unrevoked, unexpired sessions of userID, newest first.
func (s *SessionStore) ListActive(ctx context.Context, userID uint, now time.Time) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now.UTC()).
		Order("issued_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// ListByUser returns every session of userID regardless of state, oldest first.
func (s *SessionStore) ListByUser(ctx context.Context, userID uint) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// Prune deletes sessions that expired before cutoff, and sessions revoked
// before cutoff whose refresh credential has also expired by now. A revoked
// row must outlive its credential so that a replay is still recognised as
// reuse. Only housekeeping calls it.
func (s *SessionStore) Prune(ctx context.Context, cutoff, now time.Time) (int64, error) {
	cutoff, now = cutoff.UTC(), now.UTC()
	result := s.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked = ? AND revoked_at < ? AND expires_at < ?)", cutoff, true, cutoff, now).
		Delete(&models.UserSession{})
	return result.RowsAffected, result.Error
}
