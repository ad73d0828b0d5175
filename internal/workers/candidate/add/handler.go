// Package addcandidate is the job worker that appends a candidate to the
// primary store.
package addcandidate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"candidate-portal/internal/candidates"
	"candidate-portal/internal/common/camunda"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/common/observability"
	"candidate-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "candidate-add"

type Adder interface {
	Add(ctx context.Context, c models.Candidate) (candidates.AddOutcome, error)
}

type Handler struct {
	config  *Config
	service Adder
	errors  *apperrors.ErrorHandler
	retry   camunda.Retrier
	obs     *observability.Observability
	logger  logger.Logger
}

func NewHandler(config *Config, service Adder, obs *observability.Observability, retry camunda.Retrier, log logger.Logger) *Handler {
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

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		h.fail(ctx, client, job, start, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, start, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, start, apperrors.NewInternalError(err))
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

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Classify(err, true).Code)).Inc()
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute adds the candidate. Missing write credentials and validation
// failures are returned as non-retryable errors.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewValidationFailedError("input cannot be nil")
	}
	outcome, err := h.service.Add(ctx, input.Candidate)
	if err != nil {
		return nil, err
	}
	return &Output{
		CandidateID: candidates.NormalizeID(input.Candidate.ID),
		Outcome:     string(outcome),
	}, nil
}
