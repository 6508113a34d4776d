// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"edu-insight-go/internal/service"
	"edu-insight-go/pkg/log"
	"edu-insight-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// 上下文中的键
const (
	ContextClaims  = "claims"
	ContextSession = "session"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它从请求头中提取 token，验证其有效性，并把对应的聊天会话存入 Gin 的上下文中。
func AuthMiddleware(jwtManager *token.JWTManager, tutorService service.TutorService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请求未包含授权头"})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的授权头格式"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效或已过期的 token"})
			return
		}

		session, err := tutorService.Session(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrSessionExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "会话已过期，请重新登录"})
				return
			}
			log.Errorf("读取会话失败: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法读取会话"})
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextSession, session)
		c.Next()
	}
}
