// Package token signs and verifies the access and refresh credentials and
// computes the digest stored in place of a raw refresh credential.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spotlog/backend/internal/config"
)

// Kind distinguishes the two credential types inside the signed payload.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalid is returned for any credential that does not verify.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired is returned for a well-formed credential past its expiry.
	// errors.Is(ErrExpired, ErrInvalid) holds.
	ErrExpired = &expiredError{}
)

type expiredError struct{}

func (*expiredError) Error() string        { return "token: expired" }
func (*expiredError) Is(target error) bool { return target == ErrInvalid }

type baseClaims struct {
	UserID    uint   `json:"uid"`
	Name      string `json:"name"`
	SessionID string `json:"sid"`
	Type      Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// AccessClaims is the verified payload of an access credential.
type AccessClaims struct {
	UserID    uint
	Name      string
	SessionID string
	Expiry    time.Time
}

// RefreshClaims is the verified payload of a refresh credential.
// SessionID is also the credential's jti.
type RefreshClaims struct {
	UserID    uint
	Name      string
	SessionID string
	Expiry    time.Time
}

// Codec issues and verifies HS256 credentials with a key fixed at construction.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewCodec validates cfg once; a Codec never resolves configuration per call.
func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, config.ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: ttls must be positive")
	}
	return &Codec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access credential.
func (c *Codec) IssueAccess(userID uint, name, sessionID string) (string, time.Time, error) {
	return c.issue(KindAccess, c.accessTTL, userID, name, sessionID)
}

// IssueRefresh signs a long-lived refresh credential whose jti is sessionID.
func (c *Codec) IssueRefresh(userID uint, name, sessionID string) (string, time.Time, error) {
	return c.issue(KindRefresh, c.refreshTTL, userID, name, sessionID)
}

func (c *Codec) issue(kind Kind, ttl time.Duration, userID uint, name, sessionID string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(ttl)
	claims := baseClaims{
		UserID:    userID,
		Name:      name,
		SessionID: sessionID,
		Type:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if kind == KindRefresh {
		claims.ID = sessionID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate truncates to seconds; report what the credential carries.
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyAccess checks signature, expiry and kind of an access credential.
func (c *Codec) VerifyAccess(raw string) (*AccessClaims, error) {
	claims, err := c.verify(raw, KindAccess)
	if err != nil {
		return nil, err
	}
	return &AccessClaims{
		UserID:    claims.UserID,
		Name:      claims.Name,
		SessionID: claims.SessionID,
		Expiry:    claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefresh checks signature, expiry and kind of a refresh credential.
func (c *Codec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims, err := c.verify(raw, KindRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID != claims.SessionID {
		return nil, ErrInvalid
	}
	return &RefreshClaims{
		UserID:    claims.UserID,
		Name:      claims.Name,
		SessionID: claims.SessionID,
		Expiry:    claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) verify(raw string, kind Kind) (*baseClaims, error) {
	if raw == "" {
		return nil, ErrInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims baseClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !parsed.Valid || claims.Type != kind || claims.SessionID == "" || claims.UserID == 0 {
		return nil, ErrInvalid
	}
	return &claims, nil
}

// Digest returns the hex SHA-256 of a raw credential. It is only ever compared
// against stored digests.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// DigestEqual compares the digest of raw with stored in constant time.
func DigestEqual(raw, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(Digest(raw)), []byte(stored)) == 1
}
