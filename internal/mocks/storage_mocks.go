package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"action-critic/internal/cache"
	"action-critic/internal/model"
	"action-critic/internal/repository"
)

// MockEvaluationCache is a mock type for the cache.EvaluationCache type
type MockEvaluationCache struct {
	mock.Mock
}

func (_m *MockEvaluationCache) Get(ctx context.Context, key string) ([]model.ScoredAction, bool) {
	ret := _m.Called(ctx, key)

	var r0 []model.ScoredAction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ScoredAction)
	}
	return r0, ret.Bool(1)
}

func (_m *MockEvaluationCache) Set(ctx context.Context, key string, actions []model.ScoredAction) {
	_m.Called(ctx, key, actions)
}

var _ cache.EvaluationCache = (*MockEvaluationCache)(nil)

// MockEvaluationResultRepository is a mock type for the
// repository.EvaluationResultRepository type
type MockEvaluationResultRepository struct {
	mock.Mock
}

func (_m *MockEvaluationResultRepository) Save(ctx context.Context, result *model.EvaluationResult) error {
	ret := _m.Called(ctx, result)
	return ret.Error(0)
}

func (_m *MockEvaluationResultRepository) GetByTaskID(ctx context.Context, taskID string) (*model.EvaluationResult, error) {
	ret := _m.Called(ctx, taskID)

	var r0 *model.EvaluationResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.EvaluationResult)
	}
	return r0, ret.Error(1)
}

var _ repository.EvaluationResultRepository = (*MockEvaluationResultRepository)(nil)
