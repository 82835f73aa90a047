package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkedin-insights/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

// Caller supplied ids longer than this are replaced.
const maxRequestIDLength = 128

// RequestIDMiddleware keeps the caller's X-Request-ID or generates one, echoes it
// in the response and stores it on both the gin and the request context.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
