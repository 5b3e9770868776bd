package middleware

import (
	"github.com/gin-gonic/gin"

	"pomelo/internal/pkg/id"
)

// RequestIDHeader 请求 ID 的 header 名
const RequestIDHeader = "X-Request-ID"

// RequestID 请求 ID 中间件
// 优先沿用调用方带来的 ID，否则生成新的
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = id.New()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}
