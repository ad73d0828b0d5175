// Package activityrecord is the job worker that records a viewer
// interaction. Recording is fire-and-forget, so only invalid input fails
// the job.
package activityrecord

import (
	"context"
	"fmt"
	"time"

	"candidate-portal/internal/common/camunda"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/metrics"
	"candidate-portal/internal/common/validation"
	"candidate-portal/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "activity-record"

type Recorder interface {
	Record(ctx context.Context, eventType models.EventType, data map[string]interface{}) models.TrackedEvent
}

type Handler struct {
	config   *Config
	recorder Recorder
	errors   *apperrors.ErrorHandler
	retry    camunda.Retrier
	logger   logger.Logger
}

func NewHandler(config *Config, recorder Recorder, retry camunda.Retrier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	if retry == nil {
		retry = camunda.SendOnce
	}
	return &Handler{
		config:   config,
		recorder: recorder,
		errors:   apperrors.NewErrorHandler(log),
		retry:    retry,
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	input, err := parseInput(variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output := h.Execute(ctx, input)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewInternalError(err))
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
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Classify(err, true).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// parseInput validates the variables against the event schema.
func parseInput(variables map[string]interface{}) (*Input, error) {
	if res := validation.Validate(validation.EventSchema, variables); !res.Valid {
		return nil, res.Err()
	}
	input := &Input{Type: models.EventType(variables["type"].(string))}
	if data, ok := variables["data"].(map[string]interface{}); ok {
		input.Data = data
	}
	return input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	e := h.recorder.Record(ctx, input.Type, input.Data)
	return &Output{EventID: e.ID, Timestamp: e.Timestamp}
}
