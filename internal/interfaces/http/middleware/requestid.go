package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"z-story-studio/pkg/logger"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
)

// RequestID 请求 ID 注入中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// SessionContext 把路由中的会话 ID 带入日志上下文
func SessionContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid := c.Param("sid"); sid != "" {
			c.Set("session_id", sid)
			ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, sid)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
