// Package handler exposes the evaluation service over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"action-critic/internal/decoder"
	"action-critic/internal/repository"
	"action-critic/internal/service"
)

// Evaluator is the slice of the evaluation service the API needs.
type Evaluator interface {
	EvaluateRaw(ctx context.Context, rawActions, scene, location string) (*service.Batch, error)
}

type Handler struct {
	evaluator  Evaluator
	resultRepo repository.EvaluationResultRepository
	log        zerolog.Logger
}

func New(evaluator Evaluator, resultRepo repository.EvaluationResultRepository, log zerolog.Logger) *Handler {
	return &Handler{
		evaluator:  evaluator,
		resultRepo: resultRepo,
		log:        log.With().Str("component", "http_handler").Logger(),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)
	api := router.Group("/api")
	{
		api.POST("/evaluate", h.evaluate)
		api.GET("/evaluations/:task_id", h.getEvaluation)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// evaluate scores one Director batch synchronously. Envelope-level decode
// failures are the caller's fault and come back as 400; degraded scores
// are still a 200 with the degradation count exposed.
func (h *Handler) evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	batch, err := h.evaluator.EvaluateRaw(c.Request.Context(), req.RawActions, req.Scene, req.Location)
	if err != nil {
		if isEnvelopeFailure(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("evaluation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, EvaluateResponse{
		Actions:       batch.Actions,
		DegradedCount: batch.DegradedCount,
	})
}

func (h *Handler) getEvaluation(c *gin.Context) {
	taskID := c.Param("task_id")
	result, err := h.resultRepo.GetByTaskID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "evaluation not found"})
			return
		}
		h.log.Error().Err(err).Str("task_id", taskID).Msg("failed to load evaluation result")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to load evaluation"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func isEnvelopeFailure(err error) bool {
	return errors.Is(err, decoder.ErrEmptyInput) ||
		errors.Is(err, decoder.ErrInvalidJSON) ||
		errors.Is(err, decoder.ErrMissingActions) ||
		errors.Is(err, decoder.ErrNoDecodableActions)
}
