// Package messaging carries evaluation tasks between the Director-facing
// services and the evaluation worker over RabbitMQ.
package messaging

import "action-critic/internal/model"

const (
	// QueueEvaluationTasks is the durable queue the worker consumes.
	QueueEvaluationTasks = "action_evaluation_tasks"
	// DeadLetterExchange and DeadLetterQueue receive tasks the worker
	// gave up on.
	DeadLetterExchange = "action_evaluation_tasks_dlx"
	DeadLetterQueue    = "action_evaluation_tasks_dlq"
	DeadLetterKey      = "dlq"
	// ExchangeEvaluationResults is the fanout exchange results go to.
	ExchangeEvaluationResults = "action_evaluation_results"
)

const (
	ResultStatusSuccess = "success"
	ResultStatusError   = "error"
)

// EvaluationTaskPayload is one batch of Director output to evaluate.
type EvaluationTaskPayload struct {
	TaskID     string `json:"task_id"`
	UserID     string `json:"user_id"`
	RawActions string `json:"raw_actions"`
	Scene      string `json:"scene"`
	Location   string `json:"location"`
}

// EvaluationResultPayload is published once a task finishes either way.
type EvaluationResultPayload struct {
	TaskID           string               `json:"task_id"`
	UserID           string               `json:"user_id"`
	Status           string               `json:"status"`
	ErrorDetails     string               `json:"error_details,omitempty"`
	Actions          []model.ScoredAction `json:"actions,omitempty"`
	DegradedCount    int                  `json:"degraded_count"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`
}
