package services

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/pkg/logger"
)

const (
	TaskTypeSecurityAlert = "security:alert"
	alertQueueName        = "security"
)

// AlertProcessor handles one security alert. SecurityEventService.Record is
// the processor used in production.
type AlertProcessor func(context.Context, *SecurityAlert) error

// AlertQueue carries security alerts out of the request path.
type AlertQueue interface {
	// Enqueue hands the alert to the queue
	Enqueue(alert *SecurityAlert) error
	// IsAsync returns true if alerts are processed by a separate worker
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewAlertQueue picks the Redis-backed queue when configured and reachable,
// otherwise a SyncQueue running processor inline.
func NewAlertQueue(cfg *config.RedisConfig, processor AlertProcessor) AlertQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Infof("[AlertQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
		logger.Warnf("[AlertQueue] Redis unavailable, falling back to sync mode: %v", err)
	} else {
		logger.Infof("[AlertQueue] Sync queue initialized (Redis disabled)")
	}
	return NewSyncQueue(processor)
}

// AsyncQueue implements AlertQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewAsyncQueue creates a Redis-based queue and checks the connection.
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(alert *SecurityAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	info, err := q.client.Enqueue(asynq.NewTask(TaskTypeSecurityAlert, payload),
		asynq.Queue(alertQueueName),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("event", alert.Event).Msg("[AsyncQueue] alert enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements AlertQueue by running the processor in the caller's
// goroutine.
type SyncQueue struct {
	processor AlertProcessor
}

func NewSyncQueue(processor AlertProcessor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

// Enqueue processes the alert immediately. Processing errors are logged,
// never returned, so auditing cannot fail an auth operation.
func (q *SyncQueue) Enqueue(alert *SecurityAlert) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, alert %s dropped", alert.Event)
		return nil
	}
	if err := q.processor(context.Background(), alert); err != nil {
		logger.Errorf("[SyncQueue] alert %s failed: %v", alert.Event, err)
	}
	return nil
}

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error { return nil }

// enqueueAlert never lets a queue failure reach the caller.
func enqueueAlert(queue AlertQueue, alert *SecurityAlert) {
	if queue == nil {
		return
	}
	if err := queue.Enqueue(alert); err != nil {
		logger.Error().Err(err).Str("event", alert.Event).Msg("failed to enqueue security alert")
	}
}
