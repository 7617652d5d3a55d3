package middleware

import (
	"context"
	"strings"

	"sqldrill/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"
	sessionIDHeader = "X-Session-Id"

	traceIDContextKey   = "trace_id"
	requestIDContextKey = "request_id"
	sessionIDContextKey = "session_id"
)

// TraceContextMiddleware ensures trace/request/session id are in context and
// response headers. The session id is the anonymous learner identity carried
// out-of-band; it is never generated server side.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDContextKey, traceID)
		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(traceIDHeader, traceID)

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		ctx = context.WithValue(c.Request.Context(), contextkey.RequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(requestIDHeader, requestID)

		sessionID := strings.TrimSpace(c.GetHeader(sessionIDHeader))
		if sessionID != "" {
			c.Set(sessionIDContextKey, sessionID)
			ctx = context.WithValue(c.Request.Context(), contextkey.SessionID, sessionID)
			c.Request = c.Request.WithContext(ctx)
		}

		c.Next()
	}
}
