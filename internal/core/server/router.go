package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Mode          string          // gin 模式：debug / release / test
	CORSOrigins   []string        // 为空则允许所有来源
	Recovery      gin.HandlerFunc // 为空时用 ginzap 默认恢复
	CustomHeaders []string        // 额外允许并暴露给前端的头，如 X-Request-ID
}

// NewRouter 基础 engine：panic 恢复 + CORS
func NewRouter(l *zap.Logger, o Options) *gin.Engine {
	switch o.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(o.Mode)
	}
	r := gin.New()
	if o.Recovery != nil {
		r.Use(o.Recovery)
	} else {
		r.Use(ginzap.RecoveryWithZap(l, true))
	}
	r.Use(cors.New(corsConfig(o.CORSOrigins, o.CustomHeaders)))
	return r
}

func corsConfig(origins, custom []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.AllowHeaders = append(cfg.AllowHeaders, custom...)
	cfg.ExposeHeaders = append([]string{"Retry-After"}, custom...)
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration, errorLog *log.Logger) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
		ErrorLog:       errorLog,
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
