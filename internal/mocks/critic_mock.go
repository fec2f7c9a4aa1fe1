package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"action-critic/internal/critic"
	"action-critic/internal/service"
)

// MockCritic is a mock type for the service.Critic type
type MockCritic struct {
	mock.Mock
}

func (_m *MockCritic) EvaluateSkillCoherence(ctx context.Context, action, skill string) critic.Result {
	ret := _m.Called(ctx, action, skill)
	return ret.Get(0).(critic.Result)
}

func (_m *MockCritic) EvaluateConsequencePlausibility(ctx context.Context, action, consequence string) critic.Result {
	ret := _m.Called(ctx, action, consequence)
	return ret.Get(0).(critic.Result)
}

func (_m *MockCritic) EvaluateNarrativeQuality(ctx context.Context, narrative, criterion string) critic.Result {
	ret := _m.Called(ctx, narrative, criterion)
	return ret.Get(0).(critic.Result)
}

var _ service.Critic = (*MockCritic)(nil)
