package middleware

import (
	"github.com/fraudsight/fraudsight/pkg"
	"github.com/fraudsight/fraudsight/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceID takes the inbound X-Trace-Id header, or mints one, and makes it
// available to handlers and in the response for request correlation.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.Request.Header.Get(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = uuid.New().String()
		}
		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)
		c.Next()
	}
}
