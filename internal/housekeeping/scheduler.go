// Package housekeeping prunes rows the credential lifecycle leaves behind:
// sessions long past revocation or expiry and old security events. It runs
// outside the request path and only when enabled.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/services"
	"github.com/spotlog/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	lockName = "housekeeping"
	lockTTL  = time.Hour
)

// Result is what one run removed.
type Result struct {
	Sessions int64
	Events   int64
	Skipped  bool
}

type Scheduler struct {
	cfg      config.HousekeepingConfig
	db       *gorm.DB
	sessions *services.SessionStore
	events   *services.SecurityEventService
	cron     *cron.Cron
	owner    string
	now      func() time.Time
}

func NewScheduler(cfg config.HousekeepingConfig, db *gorm.DB) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		cfg:      cfg,
		db:       db,
		sessions: services.NewSessionStore(db),
		events:   services.NewSecurityEventService(db),
		owner:    host + "/" + uuid.NewString(),
		now:      time.Now,
	}
}

// Start registers the configured schedule. It is a no-op when disabled.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		logger.Infof("[Housekeeping] Disabled")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			logger.Errorf("[Housekeeping] Run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("housekeeping schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	logger.Infof("[Housekeeping] Scheduler started (%s)", s.cfg.Schedule)
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunOnce prunes once if this instance wins the lock for the current minute.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	now := s.now().UTC()

	acquired, err := s.acquire(ctx, now)
	if err != nil {
		return Result{}, err
	}
	if !acquired {
		logger.Debug().Msg("[Housekeeping] Another instance holds the lock, skipping")
		return Result{Skipped: true}, nil
	}

	var result Result
	if s.cfg.SessionRetention > 0 {
		result.Sessions, err = s.sessions.Prune(ctx, now.Add(-s.cfg.SessionRetention), now)
		if err != nil {
			return result, fmt.Errorf("prune sessions: %w", err)
		}
	}
	if s.cfg.EventRetention > 0 {
		result.Events, err = s.events.Cleanup(ctx, now.Add(-s.cfg.EventRetention))
		if err != nil {
			return result, fmt.Errorf("prune security events: %w", err)
		}
	}

	logger.Info().
		Int64("sessions", result.Sessions).
		Int64("events", result.Events).
		Msg("[Housekeeping] Pruned")
	return result, nil
}

// acquire inserts the lock row for this minute; the unique index lets exactly
// one instance succeed. Stale lock rows are dropped first.
func (s *Scheduler) acquire(ctx context.Context, now time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	if err := db.Where("lock_name = ? AND expires_at < ?", lockName, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, fmt.Errorf("drop stale locks: %w", err)
	}

	lock := &models.SchedulerLock{
		LockName:  lockName,
		LockKey:   now.Truncate(time.Minute).Format(time.RFC3339),
		LockedBy:  s.owner,
		LockedAt:  now,
		ExpiresAt: now.Add(lockTTL),
	}
	err := db.Create(lock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	return true, nil
}
