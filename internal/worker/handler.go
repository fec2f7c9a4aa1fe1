// Package worker processes asynchronous evaluation tasks: decode the
// Director batch, score it, persist the result and publish a notification.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"action-critic/internal/decoder"
	"action-critic/internal/messaging"
	"action-critic/internal/model"
	"action-critic/internal/repository"
	"action-critic/internal/service"
)

// Evaluator is the slice of the evaluation service the handler needs.
type Evaluator interface {
	EvaluateRaw(ctx context.Context, rawActions, scene, location string) (*service.Batch, error)
}

type TaskHandler struct {
	evaluator  Evaluator
	resultRepo repository.EvaluationResultRepository
	publisher  messaging.ResultPublisher
	log        zerolog.Logger
}

func NewTaskHandler(evaluator Evaluator, resultRepo repository.EvaluationResultRepository, publisher messaging.ResultPublisher, log zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		evaluator:  evaluator,
		resultRepo: resultRepo,
		publisher:  publisher,
		log:        log.With().Str("component", "task_handler").Logger(),
	}
}

// Handle processes one evaluation task. A decode failure is a terminal
// outcome for the task (the Director sent garbage): it is persisted and
// published as an error result, and the task is acked. Only infrastructure
// failures (persistence, publish) return an error and dead-letter the task.
func (h *TaskHandler) Handle(ctx context.Context, payload messaging.EvaluationTaskPayload) error {
	metricsIncrementTasksReceived()
	start := time.Now()
	log := h.log.With().Str("task_id", payload.TaskID).Str("user_id", payload.UserID).Logger()
	log.Info().Msg("processing evaluation task")

	result := &model.EvaluationResult{
		TaskID:    payload.TaskID,
		UserID:    payload.UserID,
		CreatedAt: start,
	}
	status := messaging.ResultStatusSuccess

	batch, err := h.evaluator.EvaluateRaw(ctx, payload.RawActions, payload.Scene, payload.Location)
	switch {
	case err == nil:
		result.Actions = batch.Actions
		result.DegradedCount = batch.DegradedCount
		metricsIncrementTasksSucceeded()
	case isEnvelopeFailure(err):
		log.Warn().Err(err).Msg("director batch undecodable")
		result.Error = err.Error()
		status = messaging.ResultStatusError
		metricsIncrementTaskFailed("decode")
	default:
		metricsIncrementTaskFailed("evaluation")
		return fmt.Errorf("evaluate task %s: %w", payload.TaskID, err)
	}

	result.CompletedAt = time.Now()
	result.ProcessingTimeMs = result.CompletedAt.Sub(start).Milliseconds()
	metricsRecordTaskDuration(result.CompletedAt.Sub(start))

	if err := h.resultRepo.Save(ctx, result); err != nil {
		metricsIncrementTaskFailed("save")
		return fmt.Errorf("save result for task %s: %w", payload.TaskID, err)
	}

	notification := messaging.EvaluationResultPayload{
		TaskID:           result.TaskID,
		UserID:           result.UserID,
		Status:           status,
		ErrorDetails:     result.Error,
		Actions:          result.Actions,
		DegradedCount:    result.DegradedCount,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	if err := h.publisher.PublishResult(ctx, notification); err != nil {
		metricsIncrementTaskFailed("publish")
		return fmt.Errorf("publish result for task %s: %w", payload.TaskID, err)
	}

	log.Info().Str("status", status).Int64("duration_ms", result.ProcessingTimeMs).Msg("evaluation task finished")
	return nil
}

func isEnvelopeFailure(err error) bool {
	return errors.Is(err, decoder.ErrEmptyInput) ||
		errors.Is(err, decoder.ErrInvalidJSON) ||
		errors.Is(err, decoder.ErrMissingActions) ||
		errors.Is(err, decoder.ErrNoDecodableActions)
}
