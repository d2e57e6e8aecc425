package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("POST", "/test", nil)
	handler(c)
	return w
}

func parseErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

func TestSuccess(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Success(c, gin.H{"success": true})
	})

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != `{"success":true}` {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestCreated(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Created(c, map[string]int{"id": 1})
	})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
}

func TestError_Taxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantKind   Kind
	}{
		{"validation", NewValidation("MISSING_CREDENTIALS", "name and password are required"), http.StatusBadRequest, KindValidation},
		{"credential", NewCredential("INVALID_CREDENTIALS", "invalid name or password"), http.StatusUnauthorized, KindCredential},
		{"token", NewToken("INVALID_REFRESH_TOKEN", "refresh token is invalid"), http.StatusUnauthorized, KindToken},
		{"reuse", NewReuse("SESSION_REVOKED", "session has been revoked"), http.StatusUnauthorized, KindReuse},
		{"conflict", NewConflict("USERNAME_EXISTS", "name already taken"), http.StatusConflict, KindConflict},
		{"not found", NewNotFound("USER_NOT_FOUND", "user not found"), http.StatusNotFound, KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(func(c *gin.Context) {
				Error(c, tt.err)
			})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.err.Kind != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, tt.err.Kind)
			}
			body := parseErrorBody(t, w)
			if body.Code != tt.err.Code {
				t.Errorf("expected code %q, got %q", tt.err.Code, body.Code)
			}
			if body.Error != tt.err.Message {
				t.Errorf("expected message %q, got %q", tt.err.Message, body.Error)
			}
		})
	}
}

func TestError_WrappedAppError(t *testing.T) {
	sentinel := NewToken("SESSION_NOT_FOUND", "session does not exist")
	w := performRequest(func(c *gin.Context) {
		Error(c, fmt.Errorf("rotate: %w", sentinel))
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if body := parseErrorBody(t, w); body.Code != "SESSION_NOT_FOUND" {
		t.Errorf("expected code SESSION_NOT_FOUND, got %q", body.Code)
	}
}

func TestError_WithGenericErrorHidesCause(t *testing.T) {
	w := performRequest(func(c *gin.Context) {
		Error(c, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	body := parseErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("expected code INTERNAL_ERROR, got %q", body.Code)
	}
	if body.Error != "internal server error" {
		t.Errorf("internal cause leaked: %q", body.Error)
	}
}

func TestIsUnauthenticated(t *testing.T) {
	if !IsUnauthenticated(ErrAuthRequired) {
		t.Error("ErrAuthRequired should be unauthenticated")
	}
	if !IsUnauthenticated(NewReuse("SESSION_REVOKED", "revoked")) {
		t.Error("reuse errors should be unauthenticated")
	}
	if IsUnauthenticated(NewValidation("MISSING_CREDENTIALS", "missing")) {
		t.Error("validation errors should not be unauthenticated")
	}
	if IsUnauthenticated(errors.New("boom")) {
		t.Error("plain errors should not be unauthenticated")
	}
}

func TestAbort(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/test", nil)
	Abort(c, ErrAuthRequired)

	if !c.IsAborted() {
		t.Error("context should be aborted")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAppError_ErrorInterface(t *testing.T) {
	err := NewNotFound("USER_NOT_FOUND", "user not found")
	if err.Error() != "USER_NOT_FOUND: user not found" {
		t.Errorf("unexpected Error() %q", err.Error())
	}
}
