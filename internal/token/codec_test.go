package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spotlog/backend/internal/config"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(config.JWTConfig{
		Secret:     "test-secret-key-for-testing",
		Issuer:     "spotlog",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return c
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec(config.JWTConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	if !errors.Is(err, config.ErrMissingSecret) {
		t.Errorf("NewCodec() error = %v, expected ErrMissingSecret", err)
	}
}

func TestIssueAccess_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	raw, expiresAt, err := c.IssueAccess(42, "alice", "session-1")
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}

	claims, err := c.VerifyAccess(raw)
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if claims.UserID != 42 || claims.Name != "alice" || claims.SessionID != "session-1" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.Expiry.Equal(expiresAt) {
		t.Errorf("Expiry = %v, expected %v", claims.Expiry, expiresAt)
	}

	diff := time.Until(expiresAt) - 15*time.Minute
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("access expiry is off by %v", diff)
	}
}

func TestIssueRefresh_RoundTrip(t *testing.T) {
	c := newTestCodec(t)

	raw, _, err := c.IssueRefresh(7, "bob", "session-2")
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}

	claims, err := c.VerifyRefresh(raw)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if claims.UserID != 7 || claims.Name != "bob" || claims.SessionID != "session-2" {
		t.Errorf("claims = %+v", claims)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, &jwt.RegisteredClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}
	if jti := parsed.Claims.(*jwt.RegisteredClaims).ID; jti != "session-2" {
		t.Errorf("jti = %q, expected session id", jti)
	}
}

func TestVerify_KindsAreNotInterchangeable(t *testing.T) {
	c := newTestCodec(t)

	access, _, _ := c.IssueAccess(1, "alice", "s")
	refresh, _, _ := c.IssueRefresh(1, "alice", "s")

	if _, err := c.VerifyRefresh(access); !errors.Is(err, ErrInvalid) {
		t.Errorf("access credential accepted as refresh: %v", err)
	}
	if _, err := c.VerifyAccess(refresh); !errors.Is(err, ErrInvalid) {
		t.Errorf("refresh credential accepted as access: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	c := newTestCodec(t)
	issuedAt := time.Now().Add(-time.Hour)
	c.now = func() time.Time { return issuedAt }
	raw, _, _ := c.IssueAccess(1, "alice", "s")
	c.now = time.Now

	_, err := c.VerifyAccess(raw)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("VerifyAccess() error = %v, expected ErrExpired", err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("ErrExpired should also match ErrInvalid")
	}
}

func TestVerify_Invalid(t *testing.T) {
	c := newTestCodec(t)
	valid, _, _ := c.IssueAccess(1, "alice", "s")

	other, _ := NewCodec(config.JWTConfig{Secret: "different-secret", Issuer: "spotlog", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	foreign, _, _ := other.IssueAccess(1, "alice", "s")

	otherIssuer, _ := NewCodec(config.JWTConfig{Secret: "test-secret-key-for-testing", Issuer: "someone-else", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	wrongIssuer, _, _ := otherIssuer.IssueAccess(1, "alice", "s")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"uid": 1, "sid": "s", "typ": "access", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tokens := map[string]string{
		"empty":         "",
		"garbage":       "invalid",
		"three parts":   "not.a.token",
		"bad signature": "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
		"tampered":      tampered,
		"wrong secret":  foreign,
		"wrong issuer":  wrongIssuer,
		"alg none":      unsigned,
	}

	for name, raw := range tokens {
		t.Run(name, func(t *testing.T) {
			claims, err := c.VerifyAccess(raw)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("VerifyAccess() error = %v, expected ErrInvalid", err)
			}
			if claims != nil {
				t.Error("claims should be nil for an invalid credential")
			}
		})
	}
}

func TestDigest(t *testing.T) {
	if Digest("abc") != Digest("abc") {
		t.Error("Digest should be deterministic")
	}
	if len(Digest("abc")) != 64 {
		t.Errorf("Digest length = %d, expected 64", len(Digest("abc")))
	}

	corpus := []string{"", "a", "b", "ab", "ba", "refresh-1", "refresh-2", strings.Repeat("x", 1024)}
	seen := make(map[string]string, len(corpus))
	for _, in := range corpus {
		d := Digest(in)
		if prev, ok := seen[d]; ok {
			t.Errorf("Digest(%q) collides with Digest(%q)", in, prev)
		}
		seen[d] = in
	}
}

func TestDigestEqual(t *testing.T) {
	stored := Digest("raw-refresh")
	if !DigestEqual("raw-refresh", stored) {
		t.Error("DigestEqual should match the original input")
	}
	if DigestEqual("other", stored) {
		t.Error("DigestEqual should not match a different input")
	}
	if DigestEqual("raw-refresh", "") {
		t.Error("DigestEqual should not match an empty digest")
	}
}
