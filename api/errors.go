package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Field   string   `json:"field,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// respondError maps domain errors onto HTTP statuses. Unknown errors are
// reported without their internals.
func respondError(c *gin.Context, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.ConflictError
		notFound   *domain.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, errorResponse{Error: conflict.Message, Reasons: conflict.Reasons})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: notFound.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func badRequest(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: field + ": " + message, Field: field})
}
