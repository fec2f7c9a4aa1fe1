package model

import "time"

// ScoredAction wraps one decoded action together with the per-criterion
// critic scores. Every sub-score lies in [0.0, 1.0]. TotalScore is filled
// by an externally supplied combination policy; this package never
// computes it.
type ScoredAction struct {
	Action Action `json:"action"`

	SkillScore       float64 `json:"skill_score"`
	ConsequenceScore float64 `json:"consequence_score"`
	ContextScore     float64 `json:"context_score"`
	LocationScore    float64 `json:"location_score"`
	SpecificityScore float64 `json:"specificity_score"`

	TotalScore           float64 `json:"total_score"`
	EvaluationDurationMs int64   `json:"evaluation_duration_ms"`
}

// EvaluationResult is a persisted record of one evaluation task processed
// by the worker: the scored batch plus bookkeeping for observability.
type EvaluationResult struct {
	TaskID           string         `json:"task_id" db:"task_id"`
	UserID           string         `json:"user_id" db:"user_id"`
	Actions          []ScoredAction `json:"actions" db:"-"`
	DegradedCount    int            `json:"degraded_count" db:"degraded_count"`
	ProcessingTimeMs int64          `json:"processing_time_ms" db:"processing_time_ms"`
	Error            string         `json:"error,omitempty" db:"error"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	CompletedAt      time.Time      `json:"completed_at" db:"completed_at"`
}
