package service_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"action-critic/internal/cache"
	"action-critic/internal/critic"
	"action-critic/internal/decoder"
	"action-critic/internal/mocks"
	"action-critic/internal/model"
	"action-critic/internal/service"
)

const rawBatch = `{"actions":[{
	"action_text":"Pick lock",
	"related_skill":"Lockpicking",
	"success_consequence":"Door opens",
	"failure_consequence":"Lock breaks"
}]}`

func result(score float64) critic.Result {
	return critic.Result{Score: score, PYes: score, PNo: 1 - score}
}

func expectFiveEvaluations(c *mocks.MockCritic) {
	c.On("EvaluateSkillCoherence", mock.Anything, "Pick lock", "Lockpicking").Return(result(0.9)).Once()
	c.On("EvaluateConsequencePlausibility", mock.Anything, "Pick lock", "Door opens").Return(result(0.8)).Once()
	// Scene fit, location fit, specificity via the narrative template.
	c.On("EvaluateNarrativeQuality", mock.Anything, "A dim hallway", mock.Anything).Return(result(0.7)).Once()
	c.On("EvaluateNarrativeQuality", mock.Anything, "Pick lock", mock.MatchedBy(func(criterion string) bool {
		return criterion == "plausible in the location 'Castle cellar'"
	})).Return(result(0.6)).Once()
	c.On("EvaluateNarrativeQuality", mock.Anything, "Pick lock", "specific and concrete rather than vague").Return(result(0.5)).Once()
}

func TestEvaluateRaw_FillsAllFiveScores(t *testing.T) {
	mockCritic := new(mocks.MockCritic)
	expectFiveEvaluations(mockCritic)

	var combinerCalls int
	combiner := func(sa model.ScoredAction) float64 {
		combinerCalls++
		return 0.42
	}

	svc := service.NewEvaluationService(decoder.New(zerolog.Nop()), mockCritic, nil, combiner, zerolog.Nop())
	batch, err := svc.EvaluateRaw(context.Background(), rawBatch, "A dim hallway", "Castle cellar")

	require.NoError(t, err)
	require.Len(t, batch.Actions, 1)
	sa := batch.Actions[0]
	assert.InDelta(t, 0.9, sa.SkillScore, 1e-9)
	assert.InDelta(t, 0.8, sa.ConsequenceScore, 1e-9)
	assert.InDelta(t, 0.7, sa.ContextScore, 1e-9)
	assert.InDelta(t, 0.6, sa.LocationScore, 1e-9)
	assert.InDelta(t, 0.5, sa.SpecificityScore, 1e-9)
	assert.InDelta(t, 0.42, sa.TotalScore, 1e-9)
	assert.Equal(t, 1, combinerCalls)
	assert.Equal(t, 0, batch.DegradedCount)
	mockCritic.AssertExpectations(t)
}

func TestEvaluateRaw_CountsDegradedEvaluations(t *testing.T) {
	mockCritic := new(mocks.MockCritic)
	degraded := critic.Result{Score: 0.5, Degraded: true}
	mockCritic.On("EvaluateSkillCoherence", mock.Anything, mock.Anything, mock.Anything).Return(degraded).Once()
	mockCritic.On("EvaluateConsequencePlausibility", mock.Anything, mock.Anything, mock.Anything).Return(degraded).Once()
	mockCritic.On("EvaluateNarrativeQuality", mock.Anything, mock.Anything, mock.Anything).Return(result(0.7)).Times(3)

	svc := service.NewEvaluationService(decoder.New(zerolog.Nop()), mockCritic, nil, nil, zerolog.Nop())
	batch, err := svc.EvaluateRaw(context.Background(), rawBatch, "scene", "location")

	require.NoError(t, err)
	assert.Equal(t, 2, batch.DegradedCount)
}

func TestEvaluateRaw_EnvelopeFailurePropagates(t *testing.T) {
	svc := service.NewEvaluationService(decoder.New(zerolog.Nop()), new(mocks.MockCritic), nil, nil, zerolog.Nop())

	_, err := svc.EvaluateRaw(context.Background(), "not json at all", "scene", "location")
	assert.ErrorIs(t, err, decoder.ErrInvalidJSON)
}

func TestEvaluateRaw_CacheHitSkipsCritic(t *testing.T) {
	mockCritic := new(mocks.MockCritic)
	mockCache := new(mocks.MockEvaluationCache)
	cached := []model.ScoredAction{{TotalScore: 0.99}}
	mockCache.On("Get", mock.Anything, cache.Key(rawBatch, "scene", "location")).Return(cached, true).Once()

	svc := service.NewEvaluationService(decoder.New(zerolog.Nop()), mockCritic, mockCache, nil, zerolog.Nop())
	batch, err := svc.EvaluateRaw(context.Background(), rawBatch, "scene", "location")

	require.NoError(t, err)
	assert.Equal(t, cached, batch.Actions)
	mockCritic.AssertNotCalled(t, "EvaluateSkillCoherence", mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestEvaluateRaw_CacheMissEvaluatesAndStores(t *testing.T) {
	mockCritic := new(mocks.MockCritic)
	expectFiveEvaluations(mockCritic)

	mockCache := new(mocks.MockEvaluationCache)
	key := cache.Key(rawBatch, "A dim hallway", "Castle cellar")
	mockCache.On("Get", mock.Anything, key).Return(nil, false).Once()
	mockCache.On("Set", mock.Anything, key, mock.Anything).Once()

	svc := service.NewEvaluationService(decoder.New(zerolog.Nop()), mockCritic, mockCache, nil, zerolog.Nop())
	_, err := svc.EvaluateRaw(context.Background(), rawBatch, "A dim hallway", "Castle cellar")

	require.NoError(t, err)
	mockCache.AssertExpectations(t)
}
