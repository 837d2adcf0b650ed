package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/config"
	"github.com/Skotchmaster/videohub/internal/db"
	"github.com/Skotchmaster/videohub/internal/es"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/httpserver"
	"github.com/Skotchmaster/videohub/internal/logging"
	loggingmw "github.com/Skotchmaster/videohub/internal/middleware/logging"
	"github.com/Skotchmaster/videohub/internal/middleware/ratelimit"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/internal/service"
	"github.com/Skotchmaster/videohub/internal/storage"
	"github.com/Skotchmaster/videohub/internal/tokens"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.AccessTokenSecret, "ACCESS_TOKEN_SECRET")
	config.MustNonEmptyBytes(cfg.RefreshTokenSecret, "REFRESH_TOKEN_SECRET")
	config.MustNonEmpty(cfg.S3.Bucket, "S3_BUCKET")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx := logging.IntoContext(context.Background(), logger)

	dsn, err := cfg.DSN()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, dsn, db.Pool{
		MaxOpen:     cfg.DBPool.MaxOpen,
		MaxIdle:     cfg.DBPool.MaxIdle,
		MaxLifetime: cfg.DBPool.MaxLifetime,
	})
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	media, err := storage.NewS3Uploader(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	publisher := newPublisher(cfg, logger)
	index := newIndex(ctx, cfg, logger)

	tk := tokens.NewService(tokens.Options{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})

	r := &repo.GormRepo{DB: gdb}
	staging := storage.Staging{Dir: cfg.UploadDir}

	videos := &service.VideoService{Repo: r, Media: media, Events: publisher}
	if index != nil {
		videos.Index = index
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.Handler
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 60 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		loggingmw.RequestLogger(logger),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowCredentials: true,
		}),
	)

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{
			Svc: &service.AuthService{Repo: r, Tokens: tk, Events: publisher, MaskUnknownUser: cfg.MaskUnknownUser},
		},
		Users: &httpserver.UserHTTP{
			Svc:     &service.ProfileService{Repo: r, Media: media, Events: publisher},
			Staging: staging,
		},
		Videos: &httpserver.VideoHTTP{Svc: videos, Staging: staging},
		Subscriptions: &httpserver.SubscriptionHTTP{
			Svc: &service.SubscriptionService{Repo: r, Events: publisher},
		},
		Tokens:  tk,
		Limiter: ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, nil),
		Ready:   pinger(gdb),
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}
	logger.Info("shutdown_complete")
}

func newPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("events_disabled", "reason", "KAFKA_BROKERS is empty")
		return events.Nop{}
	}
	if err := events.EnsureTopics(cfg.KafkaBrokers[0], events.Topics...); err != nil {
		logger.Warn("kafka_topics_not_ensured", "error", err)
	}
	p, err := events.NewKafkaProducer(cfg.KafkaBrokers)
	if err != nil {
		logger.Warn("events_disabled", "error", err)
		return events.Nop{}
	}
	return p
}

func newIndex(ctx context.Context, cfg config.Config, logger *slog.Logger) *search.ESIndex {
	if cfg.ES.URL == "" {
		logger.Info("search_index_disabled", "reason", "ES_URL is empty")
		return nil
	}
	client, err := es.NewClient(ctx, cfg.ES)
	if err != nil {
		logger.Warn("search_index_disabled", "error", err)
		return nil
	}
	return &search.ESIndex{ES: client, Name: cfg.ES.Index}
}

func pinger(gdb *gorm.DB) func() error {
	return func() error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}
