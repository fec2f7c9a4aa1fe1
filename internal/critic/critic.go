// Package critic implements the probabilistic yes/no judge. The critic
// holds exactly one inference instance slot and derives a continuous score
// from the model's token-probability distribution instead of generated
// prose. Every evaluation must be an independent sample: the slot's
// conversation context is reset after every query, on every exit path.
package critic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"action-critic/internal/inference"
	"action-critic/internal/telemetry"
)

// systemPrompt primes the slot so the model only ever answers yes or no.
const systemPrompt = `You are a strict evaluator of narrative game content. ` +
	`Answer every question with exactly one word: "yes" or "no". ` +
	`Never explain, never qualify, never answer anything else.`

// YesNoGrammar restricts generation to the two literals as the entire
// response (GBNF).
const YesNoGrammar = `root ::= "yes" | "no"`

// neutralScore is the uniform fallback whenever the evaluator is unusable
// or a query fails: the answer carries no information either way.
const neutralScore = 0.5

var yesNoCandidates = []string{"yes", "no"}

// Result is the outcome of one yes/no evaluation. Degraded distinguishes
// "the model really was at 0.5" from "the fallback fired", so callers can
// observe silent degradation without the critic ever returning an error.
type Result struct {
	Score    float64
	PYes     float64
	PNo      float64
	Degraded bool
	Duration time.Duration
}

func neutral(duration time.Duration) Result {
	return Result{Score: neutralScore, Degraded: true, Duration: duration}
}

// Critic owns one inference slot. The mutex serializes all slot access:
// queries and resets on a shared slot must never interleave, otherwise one
// question's context leaks into the next one's probabilities. Independent
// Critic instances (distinct slots) run fully in parallel.
type Critic struct {
	engine inference.Engine
	sink   telemetry.Sink
	log    zerolog.Logger

	mu          sync.Mutex
	slotID      string
	initialized bool
	evalCount   int
	evalTotal   time.Duration
}

func New(engine inference.Engine, sink telemetry.Sink, log zerolog.Logger) *Critic {
	return &Critic{
		engine: engine,
		sink:   sink,
		log:    log.With().Str("component", "critic").Logger(),
	}
}

// Initialize requests the critic's instance slot. It is idempotent: a
// second call on an initialized critic is a no-op. On failure the critic
// stays uninitialized, no error is surfaced, and every evaluation
// degrades to the neutral score.
func (c *Critic) Initialize(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return
	}

	slotID, err := c.engine.CreateInstance(ctx, systemPrompt)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to create inference instance, critic stays uninitialized")
		if sinkErr := c.sink.LogInstanceCreated("", "critic", false, err.Error()); sinkErr != nil {
			c.log.Debug().Err(sinkErr).Msg("telemetry sink failed")
		}
		return
	}

	c.slotID = slotID
	c.initialized = true
	if sinkErr := c.sink.LogInstanceCreated(slotID, "critic", true, ""); sinkErr != nil {
		c.log.Debug().Err(sinkErr).Msg("telemetry sink failed")
	}
	c.log.Info().Str("slot_id", slotID).Msg("critic initialized")
}

// EvaluateYesNo asks the model one yes/no question and returns the share
// of probability mass on "yes". It never returns an error: an unusable
// evaluator or a failed query yields the neutral 0.5 with Degraded set.
func (c *Critic) EvaluateYesNo(ctx context.Context, question string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evaluateLocked(ctx, question)
}

// evaluateLocked runs one evaluation under the slot mutex. The reset defer
// is installed only after the preconditions pass: a precondition bailout
// made no server call, so there is no context to clear.
func (c *Critic) evaluateLocked(ctx context.Context, question string) Result {
	if !c.initialized || c.slotID == "" || !c.engine.Ready() {
		c.log.Warn().Bool("initialized", c.initialized).Msg("evaluator unusable, returning neutral score")
		return neutral(0)
	}

	defer func() {
		if err := c.engine.ResetInstance(ctx, c.slotID); err != nil {
			// The score is already decided; a failed reset only
			// threatens the next call's independence.
			c.log.Error().Err(err).Str("slot_id", c.slotID).Msg("failed to reset slot context")
		}
	}()

	start := time.Now()
	probs, err := c.engine.NextTokenProbabilities(ctx, c.slotID, question, yesNoCandidates, YesNoGrammar)
	duration := time.Since(start)

	// Degraded attempts count toward the teardown totals too: the slot did
	// real work even when the query failed.
	c.evalCount++
	c.evalTotal += duration

	if err != nil {
		c.log.Error().Err(err).Str("question", question).Msg("probability query failed, returning neutral score")
		return neutral(duration)
	}

	pYes, pNo := probs["yes"], probs["no"]
	ratio := neutralScore
	if pYes+pNo > 0 {
		ratio = pYes / (pYes + pNo)
	}

	if sinkErr := c.sink.LogEvaluation(c.slotID, question, ratio, pYes, pNo, duration); sinkErr != nil {
		c.log.Debug().Err(sinkErr).Msg("telemetry sink failed")
	}

	return Result{Score: ratio, PYes: pYes, PNo: pNo, Duration: duration}
}

// EvaluateSkillCoherence asks whether an action fits the skill it claims
// to exercise.
func (c *Critic) EvaluateSkillCoherence(ctx context.Context, action, skill string) Result {
	question := fmt.Sprintf("Is the action '%s' coherent with and appropriate for the skill '%s'?", action, skill)
	return c.EvaluateYesNo(ctx, question)
}

// EvaluateConsequencePlausibility asks whether an action could plausibly
// lead to the stated consequence.
func (c *Critic) EvaluateConsequencePlausibility(ctx context.Context, action, consequence string) Result {
	question := fmt.Sprintf("Could the action '%s' plausibly lead to the consequence '%s'?", action, consequence)
	return c.EvaluateYesNo(ctx, question)
}

// EvaluateNarrativeQuality asks whether a narrative fragment satisfies a
// free-form criterion.
func (c *Critic) EvaluateNarrativeQuality(ctx context.Context, narrative, criterion string) Result {
	question := fmt.Sprintf("Is this narrative %s? \"%s\"", criterion, narrative)
	return c.EvaluateYesNo(ctx, question)
}

// Close reports the evaluation totals. The count covers every attempt
// that reached the server, degraded or not; only precondition bailouts
// are excluded. It logs nothing when no attempt ran and never panics.
func (c *Critic) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evalCount == 0 {
		return
	}
	avg := c.evalTotal / time.Duration(c.evalCount)
	c.log.Info().
		Int("evaluations", c.evalCount).
		Dur("avg_duration", avg).
		Msg("critic shutting down")
}
