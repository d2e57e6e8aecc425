package models

import "time"

// RevokedReason records why a session left the active state.
type RevokedReason string

const (
	RevokedLogout        RevokedReason = "logout"
	RevokedRotated       RevokedReason = "rotated"
	RevokedReuseDetected RevokedReason = "reuse_detected"
)

// SessionState is derived from the persisted columns; it is never stored.
type SessionState string

const (
	SessionActive        SessionState = "ACTIVE"
	SessionExpired       SessionState = "EXPIRED"
	SessionRotated       SessionState = "ROTATED"
	SessionRevokedLogout SessionState = "REVOKED_LOGOUT"
	SessionRevokedReuse  SessionState = "REVOKED_REUSE"
)

// UserSession is one refresh-credential lineage. Its ID is the jti of the
// refresh credential currently bound to it. Once Revoked is true the row is
// never updated again.
type UserSession struct {
	ID                    string        `gorm:"primaryKey;size:36" json:"id"`
	UserID                uint          `gorm:"index:idx_user_sessions_user_revoked;not null" json:"user_id"`
	IssuedAt              time.Time     `gorm:"not null" json:"issued_at"`
	ExpiresAt             time.Time     `gorm:"index;not null" json:"expires_at"`
	LastUsedAt            *time.Time    `json:"last_used_at,omitempty"`
	RefreshTokenHash      string        `gorm:"size:64;not null" json:"-"`
	DeviceFingerprintHash string        `gorm:"size:64" json:"-"`
	DeviceLabel           string        `gorm:"size:100" json:"device_label"`
	IPAddress             string        `gorm:"size:64" json:"-"`
	Revoked               bool          `gorm:"index:idx_user_sessions_user_revoked;not null;default:false" json:"revoked"`
	RevokedAt             *time.Time    `gorm:"index" json:"revoked_at,omitempty"`
	RevokedReason         RevokedReason `gorm:"size:32" json:"revoked_reason,omitempty"`
	ReplacedBySessionID   *string       `gorm:"size:36" json:"replaced_by_session_id,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}

func (UserSession) TableName() string { return "user_sessions" }

// IsActive reports whether the session can still be rotated at now.
func (s *UserSession) IsActive(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// State maps the row onto the rotation state machine.
func (s *UserSession) State(now time.Time) SessionState {
	if !s.Revoked {
		if now.Before(s.ExpiresAt) {
			return SessionActive
		}
		return SessionExpired
	}
	switch s.RevokedReason {
	case RevokedRotated:
		return SessionRotated
	case RevokedReuseDetected:
		return SessionRevokedReuse
	default:
		return SessionRevokedLogout
	}
}
