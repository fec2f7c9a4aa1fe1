package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"action-critic/internal/messaging"
)

// MockResultPublisher is a mock type for the messaging.ResultPublisher type
type MockResultPublisher struct {
	mock.Mock
}

func (_m *MockResultPublisher) PublishResult(ctx context.Context, payload messaging.EvaluationResultPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

var _ messaging.ResultPublisher = (*MockResultPublisher)(nil)
