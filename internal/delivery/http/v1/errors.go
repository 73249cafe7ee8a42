package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medtrack/boardsync/internal/services"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

// abortServiceError maps engine sentinels onto the wire contract.
// Version conflicts never reach here: they are data, not errors.
func abortServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrColumnNotFound):
		abort(c, newAPIError(http.StatusNotFound, err.Error()))
	case errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidConfiguration):
		abort(c, newAPIError(http.StatusBadRequest, err.Error()))
	default:
		// ErrInvalidState lands here too: a data integrity failure is
		// the caller's cue to reload the whole board.
		abort(c, newAPIError(http.StatusInternalServerError, err.Error()))
	}
}
