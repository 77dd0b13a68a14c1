package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

type AttemptHandler struct {
	attempts app.Attempts
}

func NewAttemptHandler(attempts app.Attempts) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

type attemptRequest struct {
	Answers domain.AnswerSet `json:"answers" binding:"required"`
}

func (h *AttemptHandler) Submit(c *gin.Context) {
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return
	}
	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "answers must map question ids to option indices")
		return
	}
	principal, _ := principalFrom(c)
	result, err := h.attempts.Submit(c.Request.Context(), principal, quizID, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AttemptHandler) Result(c *gin.Context) {
	attemptID, ok := pathID(c, "attemptId")
	if !ok {
		return
	}
	principal, _ := principalFrom(c)
	result, err := h.attempts.Result(c.Request.Context(), principal, attemptID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
