// Package service composes the decoder and the critic: decode a Director
// batch, run the five criterion evaluations per action, attach the scores.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"action-critic/internal/cache"
	"action-critic/internal/critic"
	"action-critic/internal/decoder"
	"action-critic/internal/model"
)

// Critic is the evaluation capability the service consumes.
type Critic interface {
	EvaluateSkillCoherence(ctx context.Context, action, skill string) critic.Result
	EvaluateConsequencePlausibility(ctx context.Context, action, consequence string) critic.Result
	EvaluateNarrativeQuality(ctx context.Context, narrative, criterion string) critic.Result
}

// Combiner folds the five sub-scores of a scored action into TotalScore.
// The policy is owned by the deployment, not by this service: callers
// inject whatever weighting their ranking layer expects.
type Combiner func(model.ScoredAction) float64

// Batch is one evaluated Director batch.
type Batch struct {
	Actions       []model.ScoredAction
	DegradedCount int
}

type EvaluationService struct {
	decoder  *decoder.Decoder
	critic   Critic
	cache    cache.EvaluationCache // nil disables caching
	combiner Combiner
	log      zerolog.Logger
}

func NewEvaluationService(d *decoder.Decoder, c Critic, evalCache cache.EvaluationCache, combiner Combiner, log zerolog.Logger) *EvaluationService {
	return &EvaluationService{
		decoder:  d,
		critic:   c,
		cache:    evalCache,
		combiner: combiner,
		log:      log.With().Str("component", "evaluation_service").Logger(),
	}
}

// EvaluateRaw decodes a raw Director batch and scores every decoded action
// against the given scene and location. Envelope-level decode failures are
// returned to the caller; everything past decoding degrades instead of
// failing, so a usable (if partially neutral) batch always comes back.
func (s *EvaluationService) EvaluateRaw(ctx context.Context, rawActions, scene, location string) (*Batch, error) {
	if s.cache != nil {
		key := cache.Key(rawActions, scene, location)
		if cached, ok := s.cache.Get(ctx, key); ok {
			s.log.Debug().Str("key", key).Int("actions", len(cached)).Msg("evaluation served from cache")
			return &Batch{Actions: cached}, nil
		}
	}

	actions, err := s.decoder.Decode(rawActions)
	if err != nil {
		return nil, fmt.Errorf("decode director batch: %w", err)
	}

	batch := &Batch{Actions: make([]model.ScoredAction, 0, len(actions))}
	for _, action := range actions {
		scored, degraded := s.scoreAction(ctx, action, scene, location)
		batch.Actions = append(batch.Actions, scored)
		batch.DegradedCount += degraded
	}

	if batch.DegradedCount > 0 {
		s.log.Warn().Int("degraded", batch.DegradedCount).Int("actions", len(actions)).
			Msg("some evaluations fell back to the neutral score")
	}
	if s.cache != nil && batch.DegradedCount == 0 {
		s.cache.Set(ctx, cache.Key(rawActions, scene, location), batch.Actions)
	}
	return batch, nil
}

// scoreAction runs the five criterion evaluations for one action and
// returns the scored record plus how many evaluations degraded.
func (s *EvaluationService) scoreAction(ctx context.Context, action model.Action, scene, location string) (model.ScoredAction, int) {
	start := time.Now()

	skill := s.critic.EvaluateSkillCoherence(ctx, action.ActionText, action.Skill)
	consequence := s.critic.EvaluateConsequencePlausibility(ctx, action.ActionText, action.SuccessConsequence)
	sceneFit := s.critic.EvaluateNarrativeQuality(ctx, scene,
		fmt.Sprintf("coherent with the player attempting the action '%s'", action.ActionText))
	locationFit := s.critic.EvaluateNarrativeQuality(ctx, action.ActionText,
		fmt.Sprintf("plausible in the location '%s'", location))
	specificity := s.critic.EvaluateNarrativeQuality(ctx, action.ActionText,
		"specific and concrete rather than vague")

	scored := model.ScoredAction{
		Action:               action,
		SkillScore:           skill.Score,
		ConsequenceScore:     consequence.Score,
		ContextScore:         sceneFit.Score,
		LocationScore:        locationFit.Score,
		SpecificityScore:     specificity.Score,
		EvaluationDurationMs: time.Since(start).Milliseconds(),
	}
	if s.combiner != nil {
		scored.TotalScore = s.combiner(scored)
	}

	degraded := 0
	for _, r := range []critic.Result{skill, consequence, sceneFit, locationFit, specificity} {
		if r.Degraded {
			degraded++
		}
	}
	return scored, degraded
}
