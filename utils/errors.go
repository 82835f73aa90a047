package utils

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"linkedin-insights/internal/logger"
	"linkedin-insights/services"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithUnauthorized sends a 401 Unauthorized error
func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

// RespondWithForbidden sends a 403 Forbidden error
func RespondWithForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "forbidden", message, nil)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithBadGateway sends a 502 for upstream scraper or AI failures
func RespondWithBadGateway(c *gin.Context, errorCode, message string) {
	RespondWithError(c, http.StatusBadGateway, errorCode, message, nil)
}

// RespondWithServiceUnavailable sends a 503 Service Unavailable error
func RespondWithServiceUnavailable(c *gin.Context, errorCode, message string) {
	RespondWithError(c, http.StatusServiceUnavailable, errorCode, message, nil)
}

// RespondWithServiceError maps a service error to its status and error code.
// Unrecognised errors are logged and reported as 500 without internals.
func RespondWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPageID), errors.Is(err, services.ErrInvalidFilter):
		RespondWithBadRequest(c, err.Error(), nil)
	case errors.Is(err, services.ErrPageNotFound), errors.Is(err, services.ErrPostNotFound):
		RespondWithNotFound(c, err.Error())
	case errors.Is(err, services.ErrScrapeFailed), errors.Is(err, services.ErrStaleServed):
		RespondWithBadGateway(c, "scrape_failed", err.Error())
	case errors.Is(err, services.ErrAINotConfigured):
		RespondWithServiceUnavailable(c, "ai_not_configured", "AI summaries are not configured on this server")
	case errors.Is(err, services.ErrAIFailed):
		RespondWithBadGateway(c, "ai_failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		RespondWithError(c, http.StatusGatewayTimeout, "timeout", "request timed out", nil)
	default:
		logger.Error("Request failed",
			"path", c.FullPath(),
			"request_id", logger.RequestID(c.Request.Context()),
			"error", err,
		)
		RespondWithInternalError(c, "internal server error", nil)
	}
}
