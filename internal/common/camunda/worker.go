package camunda

import (
	"sync"

	"candidate-portal/internal/common/config"
	"candidate-portal/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type HandlerFunc func(client worker.JobClient, job entities.Job)

// Workers opens job workers on one client and closes them together.
type Workers struct {
	client *Client
	logger logger.Logger

	mu      sync.Mutex
	running map[string]worker.JobWorker
}

func NewWorkers(client *Client, log logger.Logger) *Workers {
	return &Workers{
		client:  client,
		logger:  log,
		running: make(map[string]worker.JobWorker),
	}
}

// Register opens a worker for taskType unless it is disabled. Registering
// the same task type twice is a no-op.
func (w *Workers) Register(taskType string, wcfg config.WorkerConfig, handle HandlerFunc) {
	if !wcfg.Enabled {
		w.logger.Info("Worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.running[taskType]; ok {
		return
	}

	w.running[taskType] = w.client.Raw().NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handle)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	w.logger.Info("Worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
}

func (w *Workers) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.running)
}

// CloseAll stops polling and waits for in-flight jobs.
func (w *Workers) CloseAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for taskType, jw := range w.running {
		jw.Close()
		jw.AwaitClose()
		w.logger.Info("Worker stopped", map[string]interface{}{"taskType": taskType})
	}
	w.running = make(map[string]worker.JobWorker)
}
