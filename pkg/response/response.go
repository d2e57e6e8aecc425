package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the envelope every failed request answers with.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Kind classifies an AppError independently of its HTTP status.
type Kind int

const (
	KindInternal   Kind = iota
	KindValidation      // malformed or missing input
	KindCredential      // bad username/password or disabled account
	KindToken           // expired, malformed or unknown credential
	KindReuse           // refresh credential replayed; sessions were revoked
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCredential:
		return "credential"
	case KindToken:
		return "token"
	case KindReuse:
		return "reuse_detected"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 401, 409)
	Kind       Kind   // taxonomy class
	Code       string // machine-readable code, e.g. INVALID_CREDENTIALS
	Message    string // public message
}

func (e *AppError) Error() string {
	return e.Code + ": " + e.Message
}

// Pre-defined error constructors

func NewValidation(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Kind: KindValidation, Code: code, Message: msg}
}

func NewCredential(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindCredential, Code: code, Message: msg}
}

func NewToken(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindToken, Code: code, Message: msg}
}

func NewReuse(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusUnauthorized, Kind: KindReuse, Code: code, Message: msg}
}

func NewConflict(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusConflict, Kind: KindConflict, Code: code, Message: msg}
}

func NewNotFound(code, msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Kind: KindNotFound, Code: code, Message: msg}
}

// ErrInternal is what callers see for anything that is not an *AppError.
var ErrInternal = &AppError{
	HTTPStatus: http.StatusInternalServerError,
	Kind:       KindInternal,
	Code:       "INTERNAL_ERROR",
	Message:    "internal server error",
}

// ErrAuthRequired is the generic unauthenticated answer.
var ErrAuthRequired = NewToken("AUTH_REQUIRED", "authentication required")

// AsAppError unwraps err into an *AppError, falling back to ErrInternal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal
}

// IsUnauthenticated reports whether err belongs to a class that maps to 401.
func IsUnauthenticated(err error) bool {
	switch AsAppError(err).Kind {
	case KindCredential, KindToken, KindReuse:
		return true
	}
	return false
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error sends an error envelope. If err is an *AppError, its code and status
// are used; otherwise a generic 500 is returned and the cause stays server-side.
func Error(c *gin.Context, err error) {
	appErr := AsAppError(err)
	c.JSON(appErr.HTTPStatus, ErrorBody{
		Error: appErr.Message,
		Code:  appErr.Code,
	})
}

// Abort is Error followed by c.Abort, for middleware.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// BadRequest writes a 400 envelope for input gin could not bind.
func BadRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: msg, Code: code})
}
