package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(config.JWTConfig{
		Secret:     "test-secret-key-for-testing",
		Issuer:     "spotlog",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return codec
}

// testEnv wires the auth services against an in-memory database with the
// sync alert queue, so security events are written before a call returns.
type testEnv struct {
	db         *gorm.DB
	codec      *token.Codec
	metrics    *AuthMetrics
	events     *SecurityEventService
	sessions   *SessionStore
	users      *UserStore
	revocation *RevocationService
	rotation   *RotationService
	auth       *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	codec := newTestCodec(t)
	metrics := NewAuthMetrics()
	events := NewSecurityEventService(db)
	alerts := NewSyncQueue(events.Record)
	sessions := NewSessionStore(db)
	revocation := NewRevocationService(sessions, alerts, metrics)

	authCfg := &config.AuthConfig{MinPasswordLength: 6, BcryptCost: bcrypt.MinCost}
	return &testEnv{
		db:         db,
		codec:      codec,
		metrics:    metrics,
		events:     events,
		sessions:   sessions,
		users:      NewUserStore(db, bcrypt.MinCost),
		revocation: revocation,
		rotation:   NewRotationService(db, codec, revocation, alerts, metrics),
		auth:       NewAuthService(db, codec, authCfg, alerts, metrics),
	}
}

func (e *testEnv) createUser(t *testing.T, name, password string) *models.User {
	t.Helper()
	user := &models.User{Name: name, IsValid: true}
	if err := e.users.Create(e.db, user, password); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func (e *testEnv) disableUser(t *testing.T, userID uint) {
	t.Helper()
	if err := e.db.Model(&models.User{}).Where("id = ?", userID).Update("is_valid", false).Error; err != nil {
		t.Fatalf("disable user: %v", err)
	}
}

func (e *testEnv) login(t *testing.T, name, password string) *CredentialBundle {
	t.Helper()
	bundle, err := e.auth.Login(context.Background(), &LoginRequest{Name: name, Password: password}, testClient)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", name, err)
	}
	return bundle
}

func (e *testEnv) session(t *testing.T, id string) *models.UserSession {
	t.Helper()
	session, err := e.sessions.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID(%s) error = %v", id, err)
	}
	if session == nil {
		t.Fatalf("session %s not found", id)
	}
	return session
}

func (e *testEnv) sessionsOf(t *testing.T, userID uint) []models.UserSession {
	t.Helper()
	sessions, err := e.sessions.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	return sessions
}

func (e *testEnv) countEvents(t *testing.T, event string) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&models.SecurityEvent{}).Where("event = ?", event).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

var testClient = ClientInfo{
	IP:        "203.0.113.7",
	UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}
