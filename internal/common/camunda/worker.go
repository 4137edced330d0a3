// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"

	"inquiry-sync-workers/internal/common/logger"
)

// JobHandler is a job worker that registers itself with the broker.
type JobHandler interface {
	Register() error
	Close()
	HealthCheck(ctx context.Context) error
	GetTaskType() string
	IsEnabled() bool
}

// WorkerSet starts and stops a group of job workers together.
type WorkerSet struct {
	handlers []JobHandler
	logger   logger.Logger
}

func NewWorkerSet(log logger.Logger, handlers ...JobHandler) *WorkerSet {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &WorkerSet{handlers: handlers, logger: log}
}

// Start registers every handler. Handlers registered before a failure are
// closed again.
func (s *WorkerSet) Start() error {
	for i, h := range s.handlers {
		if err := h.Register(); err != nil {
			for _, started := range s.handlers[:i] {
				started.Close()
			}
			return fmt.Errorf("failed to register worker %s: %w", h.GetTaskType(), err)
		}
		s.logger.Info("worker started", map[string]interface{}{
			"taskType": h.GetTaskType(),
			"enabled":  h.IsEnabled(),
		})
	}
	return nil
}

// Stop closes every handler.
func (s *WorkerSet) Stop() {
	for _, h := range s.handlers {
		s.logger.Info("stopping worker", map[string]interface{}{"taskType": h.GetTaskType()})
		h.Close()
	}
}

// HealthCheck checks every enabled handler and returns the first failure.
func (s *WorkerSet) HealthCheck(ctx context.Context) error {
	for _, h := range s.handlers {
		if !h.IsEnabled() {
			continue
		}
		if err := h.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", h.GetTaskType(), err)
		}
	}
	return nil
}

// TaskTypes lists the task types of all handlers.
func (s *WorkerSet) TaskTypes() []string {
	out := make([]string, len(s.handlers))
	for i, h := range s.handlers {
		out[i] = h.GetTaskType()
	}
	return out
}
