package services

import "sync/atomic"

// AuthMetrics counts credential lifecycle outcomes for /metrics.
type AuthMetrics struct {
	LoginSucceeded  atomic.Int64
	LoginFailed     atomic.Int64
	Registrations   atomic.Int64
	Rotations       atomic.Int64
	RotationsFailed atomic.Int64
	ReuseDetected   atomic.Int64
	SessionsRevoked atomic.Int64
	Logouts         atomic.Int64
}

func NewAuthMetrics() *AuthMetrics {
	return &AuthMetrics{}
}

// AuthCounter is one named counter value.
type AuthCounter struct {
	Name  string
	Help  string
	Value int64
}

// Snapshot returns the counters in a stable order.
func (m *AuthMetrics) Snapshot() []AuthCounter {
	return []AuthCounter{
		{"spotlog_auth_logins_total", "Successful logins.", m.LoginSucceeded.Load()},
		{"spotlog_auth_login_failures_total", "Rejected login attempts.", m.LoginFailed.Load()},
		{"spotlog_auth_registrations_total", "Accounts registered.", m.Registrations.Load()},
		{"spotlog_auth_rotations_total", "Successful refresh rotations.", m.Rotations.Load()},
		{"spotlog_auth_rotation_failures_total", "Rejected refresh attempts.", m.RotationsFailed.Load()},
		{"spotlog_auth_reuse_detected_total", "Refresh credential reuse detections.", m.ReuseDetected.Load()},
		{"spotlog_auth_sessions_revoked_total", "Sessions revoked by mass revocation.", m.SessionsRevoked.Load()},
		{"spotlog_auth_logouts_total", "Sessions ended by logout.", m.Logouts.Load()},
	}
}
