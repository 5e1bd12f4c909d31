// Package httpapi exposes the turn router over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

// TurnProcessor is satisfied by *orchestrator.Orchestrator.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, threadID string, userID int64, utterance string) (contractx.TurnResult, error)
}

type Handler struct {
	turns  TurnProcessor
	logger zerolog.Logger
}

type Option func(*Handler)

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

func NewHandler(turns TurnProcessor, opts ...Option) *Handler {
	h := &Handler{turns: turns, logger: log.Logger}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/threads/:thread_id/turns", h.PostTurn)
	e.GET("/healthz", h.Health)
}

type TurnRequest struct {
	UserID    int64  `json:"user_id"`
	Utterance string `json:"utterance"`
}

// PostTurn runs one conversational turn.
// POST /v1/threads/:thread_id/turns
func (h *Handler) PostTurn(c echo.Context) error {
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	out, err := h.turns.ProcessTurn(c.Request().Context(), c.Param("thread_id"), req.UserID, req.Utterance)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("thread_id", c.Param("thread_id")).Msg("process turn failed")
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}

// Health returns health status.
// GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidThread),
		errors.Is(err, orchestrator.ErrInvalidUser),
		errors.Is(err, orchestrator.ErrInvalidMessage):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrThreadOwner):
		return http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
