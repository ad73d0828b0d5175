// Package fetchbyid is the job worker that looks up one candidate.
package fetchbyid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"candidate-portal/internal/common/camunda"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/common/observability"
	"candidate-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "candidate-fetch-by-id"

type Finder interface {
	FetchByID(ctx context.Context, id string) (models.Candidate, bool)
}

type Handler struct {
	config  *Config
	service Finder
	errors  *apperrors.ErrorHandler
	retry   camunda.Retrier
	obs     *observability.Observability
	logger  logger.Logger
}

func NewHandler(config *Config, service Finder, obs *observability.Observability, retry camunda.Retrier, log logger.Logger) *Handler {
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

	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	output, err := h.run(ctx, job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Classify(err, true).Code)).Inc()
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
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

func (h *Handler) run(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := parseInput(job.GetVariables())
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

func parseInput(variables string) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	if strings.TrimSpace(input.CandidateID) == "" {
		return nil, apperrors.NewValidationFailedError("candidateId is required")
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewValidationFailedError("input cannot be nil")
	}
	c, ok := h.service.FetchByID(ctx, input.CandidateID)
	if !ok {
		return &Output{Found: false}, nil
	}
	return &Output{Found: true, Candidate: &c}, nil
}
