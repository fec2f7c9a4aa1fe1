package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"action-critic/internal/telemetry"
)

// MockSink is a mock type for the telemetry.Sink type
type MockSink struct {
	mock.Mock
}

func (_m *MockSink) LogEvaluation(slotID, question string, ratio, pYes, pNo float64, duration time.Duration) error {
	ret := _m.Called(slotID, question, ratio, pYes, pNo, duration)
	return ret.Error(0)
}

func (_m *MockSink) LogInstanceCreated(slotID, component string, ok bool, errMsg string) error {
	ret := _m.Called(slotID, component, ok, errMsg)
	return ret.Error(0)
}

var _ telemetry.Sink = (*MockSink)(nil)
