package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/middleware"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/services"
	"github.com/spotlog/backend/pkg/logger"
	"github.com/spotlog/backend/pkg/response"
)

type AuthHandler struct {
	auth       *services.AuthService
	rotation   *services.RotationService
	revocation *services.RevocationService
	transport  *CredentialTransport
}

func NewAuthHandler(auth *services.AuthService, rotation *services.RotationService, revocation *services.RevocationService, transport *CredentialTransport) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		rotation:   rotation,
		revocation: revocation,
		transport:  transport,
	}
}

type credentialResponse struct {
	AccessToken string          `json:"accessToken"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	User        models.UserView `json:"user"`
}

func newCredentialResponse(bundle *services.CredentialBundle) credentialResponse {
	return credentialResponse{
		AccessToken: bundle.AccessToken,
		ExpiresAt:   bundle.AccessExpiresAt,
		User:        bundle.User.View(),
	}
}

type sessionView struct {
	ID          string     `json:"id"`
	DeviceLabel string     `json:"deviceLabel"`
	IssuedAt    time.Time  `json:"issuedAt"`
	LastUsedAt  *time.Time `json:"lastUsedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Current     bool       `json:"current"`
}

func clientInfo(c *gin.Context) services.ClientInfo {
	return services.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondError renders err; anything that is not an *AppError is logged and
// hidden behind INTERNAL_ERROR.
func respondError(c *gin.Context, err error) {
	if response.AsAppError(err) == response.ErrInternal {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	response.Error(c, err)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	bundle, err := h.auth.Login(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.transport.Set(c, bundle)
	response.Success(c, newCredentialResponse(bundle))
}

// Register creates an account and signs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "INVALID_REQUEST", "invalid request body")
		return
	}

	bundle, err := h.auth.Register(c.Request.Context(), &req, clientInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.transport.Set(c, bundle)
	response.Created(c, newCredentialResponse(bundle))
}

// Refresh exchanges the refresh cookie for a new credential pair. Every
// failure is a 401 and clears both cookies.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw := h.transport.RefreshCredential(c)

	bundle, err := h.rotation.Rotate(c.Request.Context(), raw, clientInfo(c))
	if err != nil {
		h.transport.Clear(c)
		if !response.IsUnauthenticated(err) {
			logger.Error().Err(err).Msg("refresh failed")
			err = response.ErrAuthRequired
		}
		response.Error(c, err)
		return
	}

	h.transport.Set(c, bundle)
	response.Success(c, newCredentialResponse(bundle))
}

// Logout always succeeds and always clears both cookies. The refresh
// credential names the session when it arrives; otherwise the access
// credential does.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw := h.transport.RefreshCredential(c); raw != "" {
		h.auth.Logout(c.Request.Context(), raw, clientInfo(c))
	} else {
		h.auth.LogoutAccess(c.Request.Context(), middleware.AccessCredentials(c, h.transport.AccessCookieName()), clientInfo(c))
	}
	h.transport.Clear(c)
	response.Success(c, gin.H{"success": true})
}

// Session answers from the access credential alone
// GET /api/auth/session
func (h *AuthHandler) Session(c *gin.Context) {
	response.Success(c, gin.H{
		"success": true,
		"user": models.UserView{
			ID:   uintToString(middleware.GetUserID(c)),
			Name: middleware.GetUserName(c),
		},
	})
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"user": user.View()})
}

// ListSessions returns the caller's active sessions
// GET /api/auth/sessions
func (h *AuthHandler) ListSessions(c *gin.Context) {
	sessions, err := h.revocation.ListActive(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	current := middleware.GetSessionID(c)
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:          s.ID,
			DeviceLabel: s.DeviceLabel,
			IssuedAt:    s.IssuedAt,
			LastUsedAt:  s.LastUsedAt,
			ExpiresAt:   s.ExpiresAt,
			Current:     s.ID == current,
		})
	}
	response.Success(c, gin.H{"sessions": views})
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
