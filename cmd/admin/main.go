package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"user-management-api/internal/core/auth"
	"user-management-api/internal/core/config"
	"user-management-api/internal/core/database"
	"user-management-api/internal/core/logger"
	"user-management-api/internal/repo"
)

const usage = `usage:
  admin migrate                 create / update the users and orders tables
  admin token -email <address>  print a bearer token for an existing user`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:        cfg.DB.Driver,
		DSN:           cfg.DB.DSN,
		Username:      cfg.DB.Username,
		Password:      cfg.DB.Password,
		LogLevel:      cfg.DB.LogLevel,
		SlowThreshold: cfg.DB.SlowThreshold,
		Logger:        log,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	users := repo.NewUserRepo(db, cfg.DB.QueryTimeout)
	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		if err := users.AutoMigrate(ctx); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")

	case "token":
		fs := flag.NewFlagSet("token", flag.ExitOnError)
		email := fs.String("email", "", "user email")
		_ = fs.Parse(os.Args[2:])
		if *email == "" {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		u, err := users.FindByEmail(ctx, *email)
		if err != nil {
			log.Fatal("find user", zap.Error(err))
		}
		if u == nil {
			log.Fatal("user not found", zap.String("email", *email))
		}
		jwter := &auth.JWTer{
			Secret: []byte(cfg.JWT.Secret),
			Issuer: cfg.JWT.Issuer,
			TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		}
		tok, err := jwter.Issue(u.ID, string(u.Role))
		if err != nil {
			log.Fatal("issue token", zap.Error(err))
		}
		fmt.Println(tok)

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
