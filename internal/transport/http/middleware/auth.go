package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-management-api/internal/core/auth"
	"user-management-api/internal/domain"
	resp "user-management-api/internal/transport/http/response"
)

const keyActor = "actor"

// ActorResolver 根据 token 里的 uid 取用户
type ActorResolver interface {
	Resolve(ctx context.Context, uid string) (*domain.User, error)
}

// Authenticate 可选鉴权：token 缺失、无效或用户不存在时不设置 actor，继续往下走
func Authenticate(j *auth.JWTer, actors ActorResolver, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.Next()
			return
		}
		claims, err := j.Parse(strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")))
		if err != nil {
			l.Debug("ignore bearer token", zap.Error(err))
			c.Next()
			return
		}
		u, err := actors.Resolve(c.Request.Context(), claims.UID)
		if err != nil {
			status, body, _ := resp.FromError(err)
			if status == http.StatusServiceUnavailable {
				c.Header("Retry-After", "1")
			}
			l.Error("resolve actor", zap.String("uid", claims.UID), zap.Error(err))
			c.AbortWithStatusJSON(status, body)
			return
		}
		if u != nil {
			c.Set(keyActor, u)
		}
		c.Next()
	}
}

// ActorFrom 取当前请求的 actor，没有则为 nil
func ActorFrom(c *gin.Context) *domain.User {
	if v, ok := c.Get(keyActor); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// RequireActor 没有 actor 时返回 401
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "unauthenticated"))
			return
		}
		c.Next()
	}
}
