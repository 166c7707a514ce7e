package middleware

import (
	"github.com/billsync/billsync/internal/types"
	"github.com/gin-gonic/gin"
)

const headerRequestID = "X-Request-ID"

// RequestIDMiddleware stamps every request with a correlation id, reusing the
// caller's X-Request-ID when present.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(headerRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix("req")
	}

	ctx = types.SetRequestID(ctx, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(headerRequestID, requestID)

	c.Next()
}
