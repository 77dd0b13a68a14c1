package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-attempt-service/internal/domain"
)

// writeError maps domain errors to status codes. Internal failures are not echoed to clients.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidQuiz):
		status, message = http.StatusBadRequest, err.Error()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
