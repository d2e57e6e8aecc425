package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/token"
	"github.com/spotlog/backend/pkg/logger"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string  `json:"name"`
	Password string  `json:"password"`
	HomeTown *string `json:"hometown"`
	Avatar   *string `json:"avatar"`
}

// CredentialBundle is what login, registration and rotation hand to the
// transport layer. Turning it into cookies is the handler's job.
type CredentialBundle struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
	User             *models.User
}

// AuthService creates sessions from a name and password and ends them on logout.
type AuthService struct {
	db       *gorm.DB
	users    *UserStore
	sessions *SessionStore
	codec    *token.Codec
	alerts   AlertQueue
	metrics  *AuthMetrics

	minPasswordLength int
	now               func() time.Time
}

func NewAuthService(db *gorm.DB, codec *token.Codec, cfg *config.AuthConfig, alerts AlertQueue, metrics *AuthMetrics) *AuthService {
	if metrics == nil {
		metrics = NewAuthMetrics()
	}
	return &AuthService{
		db:                db,
		users:             NewUserStore(db, cfg.BcryptCost),
		sessions:          NewSessionStore(db),
		codec:             codec,
		alerts:            alerts,
		metrics:           metrics,
		minPasswordLength: cfg.MinPasswordLength,
		now:               time.Now,
	}
}

// Login verifies name and password and opens a new session. Unknown names
// and wrong passwords produce the same error after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, client ClientInfo) (*CredentialBundle, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.users.VerifyPassword(user, req.Password) {
		s.loginFailed(user, name, "invalid credentials", client)
		return nil, ErrInvalidCredentials
	}
	if !user.IsValid {
		s.loginFailed(user, name, "account disabled", client)
		return nil, ErrAccountDisabled
	}

	now := s.now()
	session, bundle, err := mintSession(s.codec, user, uuid.NewString(), client, now)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.sessions.WithTx(tx).Create(ctx, session); err != nil {
			return err
		}
		return s.users.UpdateLastLogin(tx, user.ID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	user.LastLoginAt = &now

	s.metrics.LoginSucceeded.Add(1)
	enqueueAlert(s.alerts, newAlert(LevelInfo, EventLoginSucceeded, "login succeeded", user.ID, session.ID, client))
	return bundle, nil
}

func (s *AuthService) loginFailed(user *models.User, name, reason string, client ClientInfo) {
	s.metrics.LoginFailed.Add(1)
	var userID uint
	if user != nil {
		userID = user.ID
	}
	enqueueAlert(s.alerts, newAlert(LevelWarning, EventLoginFailed, reason, userID, "", client).withExtra("name", name))
}

// Register creates the account and its first session in one transaction.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest, client ClientInfo) (*CredentialBundle, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}
	if utf8.RuneCountInString(req.Password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := s.users.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	now := s.now()
	user := &models.User{
		Name:        name,
		Avatar:      nonEmpty(req.Avatar),
		HomeTown:    nonEmpty(req.HomeTown),
		IsValid:     true,
		LastLoginAt: &now,
	}

	var bundle *CredentialBundle
	var sessionID string
	err = s.sessions.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.users.Create(tx, user, req.Password); err != nil {
			return err
		}
		session, b, err := mintSession(s.codec, user, uuid.NewString(), client, now)
		if err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).Create(ctx, session); err != nil {
			return err
		}
		bundle, sessionID = b, session.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.metrics.Registrations.Add(1)
	enqueueAlert(s.alerts, newAlert(LevelInfo, EventRegistered, "account registered", user.ID, sessionID, client))
	return bundle, nil
}

// Logout revokes the session behind raw when it is still current. It never
// reports failure: a missing, invalid or already revoked credential is a no-op
// and store errors are only logged.
func (s *AuthService) Logout(ctx context.Context, raw string, client ClientInfo) {
	if raw == "" {
		return
	}
	claims, err := s.codec.VerifyRefresh(raw)
	if err != nil {
		return
	}

	revoked, err := s.sessions.RevokeIfCurrent(ctx, claims.SessionID, token.Digest(raw), models.RevokedLogout, s.now())
	s.finishLogout(revoked, err, claims.UserID, claims.SessionID, client)
}

// LogoutAccess ends the session named by the first access credential in raws
// that verifies. Browsers only send the refresh cookie to the refresh
// endpoint, so this is how a browser logout reaches the session row. A later
// replay of that session's refresh credential is treated as reuse.
func (s *AuthService) LogoutAccess(ctx context.Context, raws []string, client ClientInfo) {
	for _, raw := range raws {
		claims, err := s.codec.VerifyAccess(raw)
		if err != nil {
			continue
		}
		revoked, err := s.sessions.RevokeOwned(ctx, claims.SessionID, claims.UserID, models.RevokedLogout, s.now())
		s.finishLogout(revoked, err, claims.UserID, claims.SessionID, client)
		return
	}
}

func (s *AuthService) finishLogout(revoked int64, err error, userID uint, sessionID string, client ClientInfo) {
	if err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("logout: revoke session")
		return
	}
	if revoked == 0 {
		return
	}

	s.metrics.Logouts.Add(1)
	enqueueAlert(s.alerts, newAlert(LevelInfo, EventLogout, "session ended by logout", userID, sessionID, client))
}

// GetUser loads the account behind an access credential.
func (s *AuthService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// mintSession signs a credential pair for sessionID and builds the matching
// row. Nothing is persisted.
func mintSession(codec *token.Codec, user *models.User, sessionID string, client ClientInfo, now time.Time) (*models.UserSession, *CredentialBundle, error) {
	access, accessExp, err := codec.IssueAccess(user.ID, user.Name, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := codec.IssueRefresh(user.ID, user.Name, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session := &models.UserSession{
		ID:                    sessionID,
		UserID:                user.ID,
		IssuedAt:              now,
		ExpiresAt:             refreshExp,
		LastUsedAt:            &now,
		RefreshTokenHash:      token.Digest(refresh),
		DeviceFingerprintHash: Fingerprint(client.IP, client.UserAgent),
		DeviceLabel:           DeviceLabel(client.UserAgent),
		IPAddress:             client.IP,
	}
	bundle := &CredentialBundle{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
		User:             user,
	}
	return session, bundle, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
