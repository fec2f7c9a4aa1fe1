package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"action-critic/internal/inference"
)

// MockEngine is a mock type for the inference.Engine type
type MockEngine struct {
	mock.Mock
}

func (_m *MockEngine) CreateInstance(ctx context.Context, systemPrompt string) (string, error) {
	ret := _m.Called(ctx, systemPrompt)
	return ret.String(0), ret.Error(1)
}

func (_m *MockEngine) NextTokenProbabilities(ctx context.Context, slotID, prompt string, candidates []string, grammar string) (map[string]float64, error) {
	ret := _m.Called(ctx, slotID, prompt, candidates, grammar)

	var r0 map[string]float64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]float64)
	}
	return r0, ret.Error(1)
}

func (_m *MockEngine) ResetInstance(ctx context.Context, slotID string) error {
	ret := _m.Called(ctx, slotID)
	return ret.Error(0)
}

func (_m *MockEngine) Ready() bool {
	ret := _m.Called()
	return ret.Bool(0)
}

var _ inference.Engine = (*MockEngine)(nil)
