package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"user-management-api/internal/core/auth"
	"user-management-api/internal/core/cache"
	"user-management-api/internal/core/config"
	"user-management-api/internal/core/database"
	"user-management-api/internal/core/logger"
	"user-management-api/internal/core/server"
	"user-management-api/internal/feature/user"
	"user-management-api/internal/mail"
	"user-management-api/internal/repo"
	"user-management-api/internal/transport/http/handler"
	"user-management-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.Build(logger.Options{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File.Enable,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))
	users := repo.NewUserRepo(db, cfg.DB.QueryTimeout)

	if cfg.DB.AutoMigrate {
		if err := users.AutoMigrate(context.Background()); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// Redis 可选，没配地址时 actor 直接查库
	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer rc.Close()
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable, actor cache degraded", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	// 邮件
	sender, closeSender := mustMailSender(cfg, log)
	defer closeSender()
	notifier := mail.NewNotifier(sender, cfg.Mail.AdminAddress, cfg.Mail.Timeout, log.Named("mail"))

	// JWT
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	if len(jwter.Secret) == 0 {
		log.Warn("jwt secret is empty, all requests are anonymous")
	}

	svc := user.NewService(users, notifier)
	mode := gin.DebugMode
	if cfg.IsProduction() {
		mode = gin.ReleaseMode
	}
	r := router.NewAPIEngine(router.Deps{
		Logger:   log,
		HTTP:     cfg.App.HTTP,
		Mode:     mode,
		JWT:      jwter,
		Actors:   user.NewActors(users, rc, cfg.Auth.ActorCacheTTL),
		Registry: router.NewRegistry(handler.NewUserHandler(svc, log)),
	})

	// HTTP Server
	errLog, err := logger.ToStdLogger(log.Named("http"), zapcore.WarnLevel)
	if err != nil {
		log.Fatal("http error log", zap.Error(err))
	}
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		errLog,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Env),
		zap.String("mail_driver", cfg.Mail.Driver),
		zap.String("health", baseURL+"/health"),
		zap.String("api", baseURL+cfg.App.HTTP.BasePath),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("user api start FAILED", zap.Error(err))
		}
	}()
	log.Info("user api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("user api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		SlowThreshold:      cfg.DB.SlowThreshold,
		Logger:             l,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

// mustMailSender 按 mail.driver 选择投递方式；queue 模式只入队，由 mailworker 真正发送
func mustMailSender(cfg *config.Config, l *zap.Logger) (mail.Sender, func()) {
	switch cfg.Mail.Driver {
	case "mailgun":
		return mail.NewMailgunSender(cfg.Mail.Mailgun.Domain, cfg.Mail.Mailgun.APIKey, cfg.Mail.From, cfg.Mail.Timeout), func() {}
	case "queue":
		pub, err := mail.NewRabbitPublisher(cfg.Mail.AMQP.URL, cfg.Mail.AMQP.Queue)
		if err != nil {
			l.Fatal("mail queue", zap.Error(err))
		}
		return mail.NewQueueSender(pub), pub.Close
	default:
		return mail.NewLogSender(l.Named("mail")), func() {}
	}
}
