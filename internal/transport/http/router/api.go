package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"user-management-api/internal/core/auth"
	"user-management-api/internal/core/config"
	"user-management-api/internal/core/server"
	mdw "user-management-api/internal/transport/http/middleware"
	resp "user-management-api/internal/transport/http/response"
)

type Deps struct {
	Logger   *zap.Logger
	HTTP     config.HTTP
	Mode     string
	JWT      *auth.JWTer
	Actors   mdw.ActorResolver
	Registry *Registry
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := server.NewRouter(d.Logger, server.Options{
		Mode:          d.Mode,
		CORSOrigins:   d.HTTP.CORSOrigins,
		Recovery:      mdw.Recovery(d.Logger),
		CustomHeaders: []string{mdw.KeyRequestID},
	})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(d.HTTP.RateLimitRPS), d.HTTP.RateLimitBurst),
		mdw.RateLimitPerIP(rate.Limit(d.HTTP.PerIPRPS), d.HTTP.PerIPBurst),
		mdw.ConcurrencyLimit(d.HTTP.MaxConcurrent),
		mdw.MaxBodyBytes(d.HTTP.MaxBodyBytes),
		mdw.Timeout(time.Duration(d.HTTP.RequestTimeout)*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(d.Logger),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error(resp.CodeNotFound, ""))
	})

	// 前缀；actor 可选，需要登录的路由自己挂 RequireActor
	api := r.Group(d.HTTP.BasePath)
	api.Use(mdw.Authenticate(d.JWT, d.Actors, d.Logger))

	if d.Registry != nil {
		d.Registry.MountAll(api)
	}
	return r
}
