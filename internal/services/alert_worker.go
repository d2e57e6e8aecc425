package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/spotlog/backend/internal/config"
	"github.com/spotlog/backend/pkg/logger"
)

// AlertWorker consumes security:alert tasks from Redis.
type AlertWorker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor AlertProcessor
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewAlertWorker returns nil when Redis is disabled; alerts are then handled
// inline by the SyncQueue.
func NewAlertWorker(cfg *config.RedisConfig, processor AlertProcessor) *AlertWorker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				alertQueueName: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[AlertWorker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &AlertWorker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
}

// Start begins processing alerts in the background.
func (w *AlertWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeSecurityAlert, w.handleAlertTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[AlertWorker] Starting...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[AlertWorker] Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the worker
func (w *AlertWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[AlertWorker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[AlertWorker] Shutdown complete")
}

func (w *AlertWorker) handleAlertTask(ctx context.Context, t *asynq.Task) error {
	var alert SecurityAlert
	if err := json.Unmarshal(t.Payload(), &alert); err != nil {
		// Undecodable payloads are not retried.
		return errors.Join(err, asynq.SkipRetry)
	}

	if w.processor == nil {
		logger.Warnf("[AlertWorker] no processor set, alert %s dropped", alert.Event)
		return nil
	}
	return w.processor(ctx, &alert)
}
