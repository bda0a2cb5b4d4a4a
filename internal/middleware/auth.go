package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/darts-engine/internal/utils"
)

const (
	ctxCallerID   = "callerID"
	ctxCallerName = "callerName"
)

// TokenValidator 令牌校验
type TokenValidator interface {
	ValidateToken(token string) (*utils.JWTClaims, error)
}

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "NO_TOKEN",
				"message": "缺少认证令牌",
			})
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_TOKEN",
				"message": "无效的令牌",
				"details": err.Error(),
			})
			return
		}

		c.Set(ctxCallerID, claims.CallerID)
		c.Set(ctxCallerName, claims.Name)
		c.Next()
	}
}

// extractToken 从请求中提取令牌
func extractToken(c *gin.Context) string {
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		parts := strings.SplitN(bearer, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 浏览器建立 WebSocket 时无法设置请求头
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetCallerID 从上下文获取调用者ID
func GetCallerID(c *gin.Context) (uint, bool) {
	if v, exists := c.Get(ctxCallerID); exists {
		if id, ok := v.(uint); ok {
			return id, true
		}
	}
	return 0, false
}

// GetCallerName 从上下文获取调用者名称
func GetCallerName(c *gin.Context) string {
	return c.GetString(ctxCallerName)
}
