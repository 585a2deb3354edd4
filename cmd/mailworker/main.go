package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"user-management-api/internal/core/config"
	"user-management-api/internal/core/logger"
	"user-management-api/internal/mail"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	if cfg.Mail.Mailgun.Domain == "" || cfg.Mail.Mailgun.APIKey == "" {
		log.Fatal("mailworker needs mail.mailgun.domain and mail.mailgun.api_key")
	}
	sender := mail.NewMailgunSender(cfg.Mail.Mailgun.Domain, cfg.Mail.Mailgun.APIKey, cfg.Mail.From, cfg.Mail.Timeout)

	conn, err := amqp.Dial(cfg.Mail.AMQP.URL)
	if err != nil {
		log.Fatal("amqp dial", zap.Error(err))
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("amqp channel", zap.Error(err))
	}
	defer ch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("mailworker started",
		zap.String("queue", cfg.Mail.AMQP.Queue),
		zap.Int("prefetch", cfg.Mail.AMQP.Prefetch),
	)
	w := mail.NewWorker(sender, cfg.Mail.Timeout, cfg.Mail.AMQP.MaxAttempts, log.Named("mailworker"))
	if err := w.Consume(ctx, ch, cfg.Mail.AMQP.Queue, cfg.Mail.AMQP.Prefetch); err != nil {
		log.Error("mailworker stopped", zap.Error(err))
		return
	}
	log.Info("mailworker stopped gracefully")
}
