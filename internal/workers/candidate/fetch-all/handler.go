// Package fetchall is the job worker that loads the full candidate list
// into process variables.
package fetchall

import (
	"context"
	"time"

	"candidate-portal/internal/candidates"
	"candidate-portal/internal/common/camunda"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "candidate-fetch-all"

type Loader interface {
	Load(ctx context.Context) *candidates.FetchResult
}

type Handler struct {
	config  *Config
	service Loader
	errors  *apperrors.ErrorHandler
	retry   camunda.Retrier
	obs     *observability.Observability
	logger  logger.Logger
}

func NewHandler(config *Config, service Loader, obs *observability.Observability, retry camunda.Retrier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	if retry == nil {
		retry = camunda.SendOnce
	}
	return &Handler{
		config:  config,
		service: service,
		errors:  apperrors.NewErrorHandler(log),
		retry:   retry,
		obs:     obs,
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType)
	defer span.End()

	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	output := h.Execute(ctx)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeInternal)).Inc()
		h.errors.HandleJobError(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	err = h.retry.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	}, "complete job")
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

// Execute never fails: the service always resolves to some list.
func (h *Handler) Execute(ctx context.Context) *Output {
	res := h.service.Load(ctx)
	return &Output{
		Candidates: res.Candidates,
		Count:      len(res.Candidates),
		Source:     string(res.Source),
		Notice:     res.Notice,
	}
}
