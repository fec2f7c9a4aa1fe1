package handler

import "action-critic/internal/model"

// EvaluateRequest carries one raw Director batch plus the narrative
// context it should be judged against.
type EvaluateRequest struct {
	RawActions string `json:"raw_actions" binding:"required"`
	Scene      string `json:"scene"`
	Location   string `json:"location"`
}

type EvaluateResponse struct {
	Actions       []model.ScoredAction `json:"actions"`
	DegradedCount int                  `json:"degraded_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
