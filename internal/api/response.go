package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/feedback"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/query"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/storage"
)

const (
	codeValidation = "validation_error"
	codeNotFound   = "not_found"
	codeInternal   = "internal_error"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{Message: message, Code: code},
	})
}

// respondServiceError maps service errors onto status codes. Anything that is
// not a caller error is logged and reported without detail.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, feedback.ErrValidation), errors.Is(err, query.ErrInvalidFilter):
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, "Feedback not found")
	default:
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, codeInternal, "Internal server error")
	}
}
