package repository

import (
	"context"
	"errors"

	"action-critic/internal/model"
)

// ErrNotFound is returned when no result exists for the requested task.
var ErrNotFound = errors.New("repository: evaluation result not found")

// EvaluationResultRepository persists finished evaluation tasks.
type EvaluationResultRepository interface {
	Save(ctx context.Context, result *model.EvaluationResult) error
	GetByTaskID(ctx context.Context, taskID string) (*model.EvaluationResult, error)
}
