package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/token"
	"github.com/spotlog/backend/pkg/logger"
	"gorm.io/gorm"
)

// errStaleRefresh aborts the rotation transaction when the conditional
// update matched no row.
var errStaleRefresh = errors.New("refresh credential is not current")

// RotationService exchanges a refresh credential for a new pair. Each
// credential rotates at most once; presenting one that is no longer current
// revokes every session of its owner.
type RotationService struct {
	users      *UserStore
	sessions   *SessionStore
	codec      *token.Codec
	revocation *RevocationService
	alerts     AlertQueue
	metrics    *AuthMetrics
	now        func() time.Time
}

func NewRotationService(db *gorm.DB, codec *token.Codec, revocation *RevocationService, alerts AlertQueue, metrics *AuthMetrics) *RotationService {
	if metrics == nil {
		metrics = NewAuthMetrics()
	}
	return &RotationService{
		users:      NewUserStore(db, 0),
		sessions:   NewSessionStore(db),
		codec:      codec,
		revocation: revocation,
		alerts:     alerts,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Rotate validates raw and either returns a fresh credential pair bound to a
// new session or fails with a token error. The old row is revoked and the new
// row inserted in one transaction bound to ctx.
func (s *RotationService) Rotate(ctx context.Context, raw string, client ClientInfo) (*CredentialBundle, error) {
	bundle, err := s.rotate(ctx, raw, client)
	if err != nil {
		s.metrics.RotationsFailed.Add(1)
		return nil, err
	}
	s.metrics.Rotations.Add(1)
	return bundle, nil
}

func (s *RotationService) rotate(ctx context.Context, raw string, client ClientInfo) (*CredentialBundle, error) {
	if raw == "" {
		return nil, ErrMissingRefreshToken
	}

	claims, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil || session.UserID != claims.UserID {
		return nil, ErrSessionNotFound
	}

	now := s.now()
	digest := token.Digest(raw)

	// An expired row that is otherwise current is just stale, not reused.
	if !session.Revoked && !now.Before(session.ExpiresAt) && token.DigestEqual(raw, session.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}

	// A credential that is no longer current is a theft signal whatever the
	// account state. The conditional update below still settles races.
	if session.Revoked || !token.DigestEqual(raw, session.RefreshTokenHash) {
		return nil, s.reuseDetected(ctx, session, client)
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	if !user.IsValid {
		return nil, ErrAccountDisabled
	}

	successor, bundle, err := mintSession(s.codec, user, uuid.NewString(), client, now)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Transaction(ctx, func(tx *gorm.DB) error {
		store := s.sessions.WithTx(tx)
		rows, err := store.MarkRotated(ctx, session.ID, digest, successor.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errStaleRefresh
		}
		return store.Create(ctx, successor)
	})
	switch {
	case errors.Is(err, errStaleRefresh):
		return nil, s.reuseDetected(ctx, session, client)
	case err != nil:
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	enqueueAlert(s.alerts, newAlert(LevelInfo, EventSessionRotated, "session rotated", user.ID, successor.ID,
		client).withExtra("previous_session_id", session.ID))
	return bundle, nil
}

// reuseDetected runs after the rotation transaction has rolled back. The
// owner comes from the stored row, never from the presented claims.
func (s *RotationService) reuseDetected(ctx context.Context, session *models.UserSession, client ClientInfo) error {
	s.metrics.ReuseDetected.Add(1)

	logger.Warn().
		Uint("user_id", session.UserID).
		Str("session_id", session.ID).
		Str("ip", client.IP).
		Msg("refresh credential reuse detected, revoking all sessions")

	// The mass revocation outlives a client that hangs up mid-request.
	revoked, err := s.revocation.RevokeAll(context.WithoutCancel(ctx), session.UserID, models.RevokedReuseDetected)
	if err != nil {
		logger.Error().Err(err).Uint("user_id", session.UserID).Msg("reuse detected but revocation failed")
	}

	alert := newAlert(LevelError, EventReuseDetected, "refresh credential reuse detected", session.UserID, session.ID, client)
	enqueueAlert(s.alerts, alert.withExtra("revoked_sessions", revoked))

	return ErrRefreshReuseDetected
}
