package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/core/logger"
	"go-gin-gorm-users/internal/core/migrate"
	"go-gin-gorm-users/internal/core/server"
	"go-gin-gorm-users/internal/migrations"
	"go-gin-gorm-users/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, cleanup := logger.New(logger.FromConfig(cfg.Log))
	defer cleanup()
	restore := logger.RedirectStdLog(log, zapcore.InfoLevel)
	defer restore()
	restoreGin := logger.RedirectGin(log)
	defer restoreGin()

	if cfg.App.SecretKey == config.DefaultSecretKey {
		log.Warn("SECRET_KEY is the built-in default; set it before deploying")
	}

	// database
	dbOpts := database.OptsFromConfig(cfg.DB)
	dbOpts.Logger = database.ZapLogger(log, cfg.DB.LogLevel)
	db, err := database.NewGorm(dbOpts)
	if err != nil {
		log.Fatal("db open", zap.Error(err), zap.String("dsn", database.MaskDSN(dbOpts.DSN)))
	}
	defer func() { _ = database.Close(db) }()
	log.Info("database connected",
		zap.String("driver", cfg.DB.Driver),
		zap.String("dsn", database.MaskDSN(dbOpts.DSN)),
	)

	// schema
	m, err := migrate.New(db, log, migrations.All()...)
	if err != nil {
		log.Fatal("migrations", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		ran, err := m.Up(context.Background())
		if err != nil {
			log.Fatal("migrate up failed", zap.Error(err))
		}
		log.Info("migrations done", zap.Int("applied", len(ran)))
	} else if n, err := m.Pending(context.Background()); err == nil && n > 0 {
		log.Warn("database schema is behind; run `migrate up`", zap.Int("pending", n))
	}

	r := router.NewAPIEngine(router.Deps{Log: log, DB: db, Config: cfg})
	srv := server.BuildServer(cfg.App.HTTP, r, logger.ToStdLogger(log, zapcore.ErrorLevel))

	host := cfg.App.HTTP.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	baseURL := "http://" + server.Addr(host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("app", cfg.App.Name),
		zap.String("open", baseURL),
		zap.String("docs", baseURL+"/docs"),
		zap.String("api_v1", baseURL+router.APIPrefix),
	)

	// serve until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("user api stopped with error", zap.Error(err))
		return
	}
	log.Info("user api stopped gracefully")
}
