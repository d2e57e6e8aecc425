package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/token"
	"github.com/spotlog/backend/pkg/response"
)

const (
	ContextUserID    = "user_id"
	ContextUserName  = "user_name"
	ContextSessionID = "session_id"
)

// AuthRequired accepts an access credential from the named cookie or, failing
// that, an "Authorization: Bearer" header. A cookie that does not verify does
// not shadow a valid header. Every failure is the same 401.
func AuthRequired(codec *token.Codec, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := VerifyAccessCredential(c, codec, cookieName)
		if claims == nil {
			response.Abort(c, response.ErrAuthRequired)
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserName, claims.Name)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	}
}

// VerifyAccessCredential returns the claims of the first access credential
// that verifies, trying the cookie before the bearer header, or nil.
func VerifyAccessCredential(c *gin.Context, codec *token.Codec, cookieName string) *token.AccessClaims {
	for _, raw := range AccessCredentials(c, cookieName) {
		if claims, err := codec.VerifyAccess(raw); err == nil {
			return claims
		}
	}
	return nil
}

// AccessCredentials lists the access credentials the request carries, cookie
// first.
func AccessCredentials(c *gin.Context, cookieName string) []string {
	var found []string
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		found = append(found, cookie)
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if bearer := strings.TrimSpace(parts[1]); bearer != "" {
			found = append(found, bearer)
		}
	}
	return found
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUserName gets the current user name from context
func GetUserName(c *gin.Context) string {
	return c.GetString(ContextUserName)
}

// GetSessionID gets the session the access credential was issued for
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
