package middleware

import (
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/darts-engine/internal/logger"
)

// RequestLogger 请求日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// Recovery 捕获panic并返回500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered, debug.Stack())
		c.AbortWithStatusJSON(500, gin.H{"success": false, "message": "服务器内部错误"})
	})
}
