package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/token"
)

const testCookie = "access_token"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(config.JWTConfig{
		Secret:     "test-secret-for-middleware-testing",
		Issuer:     "spotlog",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return codec
}

func protectedRouter(codec *token.Codec) *gin.Engine {
	router := gin.New()
	router.Use(AuthRequired(codec, testCookie))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id":    GetUserID(c),
			"name":       GetUserName(c),
			"session_id": GetSessionID(c),
		})
	})
	return router
}

func TestAuthRequired_NoCredential(t *testing.T) {
	router := protectedRouter(newTestCodec(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "AUTH_REQUIRED" {
		t.Errorf("expected code AUTH_REQUIRED, got %q", body["code"])
	}
}

func TestAuthRequired_InvalidHeaderFormat(t *testing.T) {
	router := protectedRouter(newTestCodec(t))

	testCases := []string{
		"InvalidToken",
		"Basic token123",
		"Bearer",
		"Bearer invalid.jwt.token",
	}

	for _, authHeader := range testCases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", authHeader)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status %d, got %d", authHeader, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthRequired_RejectsRefreshCredential(t *testing.T) {
	codec := newTestCodec(t)
	refresh, _, _ := codec.IssueRefresh(1, "alice", "s1")
	router := protectedRouter(codec)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_ValidCredential(t *testing.T) {
	codec := newTestCodec(t)
	access, _, _ := codec.IssueAccess(7, "alice", "s1")
	router := protectedRouter(codec)

	tests := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) }},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: testCookie, Value: access}) }},
		{"cookie wins over bad header", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: testCookie, Value: access})
			r.Header.Set("Authorization", "Bearer garbage")
		}},
		{"header used when cookie is stale", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: testCookie, Value: "stale.jwt.value"})
			r.Header.Set("Authorization", "Bearer "+access)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/protected", nil)
			tt.setup(req)
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
			}
			var body struct {
				UserID    uint   `json:"user_id"`
				Name      string `json:"name"`
				SessionID string `json:"session_id"`
			}
			json.Unmarshal(w.Body.Bytes(), &body)
			if body.UserID != 7 || body.Name != "alice" || body.SessionID != "s1" {
				t.Errorf("unexpected context values %+v", body)
			}
		})
	}
}

func TestGetUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if id := GetUserID(c); id != 0 {
		t.Errorf("expected 0 for missing user_id, got %d", id)
	}

	c.Set(ContextUserID, uint(42))
	if id := GetUserID(c); id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestGetUserName(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if name := GetUserName(c); name != "" {
		t.Errorf("expected empty string for missing name, got %q", name)
	}

	c.Set(ContextUserName, "testuser")
	if name := GetUserName(c); name != "testuser" {
		t.Errorf("expected %q, got %q", "testuser", name)
	}
}
