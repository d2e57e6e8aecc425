package services

import "github.com/spotlog/backend/pkg/response"

// Errors returned by the auth services. They are compared by identity, so
// callers use errors.Is; handlers render them with response.Error.
var (
	ErrMissingCredentials = response.NewValidation("MISSING_CREDENTIALS", "name and password are required")
	ErrPasswordTooShort   = response.NewValidation("PASSWORD_TOO_SHORT", "password is too short")
	ErrInvalidCredentials = response.NewCredential("INVALID_CREDENTIALS", "invalid name or password")
	ErrAccountDisabled    = response.NewCredential("ACCOUNT_DISABLED", "account is disabled")
	ErrUsernameTaken      = response.NewConflict("USERNAME_EXISTS", "name is already taken")
	ErrUserNotFound       = response.NewNotFound("USER_NOT_FOUND", "user not found")

	ErrMissingRefreshToken  = response.NewToken("AUTH_REQUIRED", "refresh token is missing")
	ErrInvalidRefreshToken  = response.NewToken("INVALID_REFRESH_TOKEN", "refresh token is invalid or expired")
	ErrSessionNotFound      = response.NewToken("SESSION_NOT_FOUND", "session does not exist")
	ErrRefreshReuseDetected = response.NewReuse("SESSION_REVOKED", "session has been revoked")
)
