package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/shopmind/shopmind/internal/ai"
	"github.com/shopmind/shopmind/internal/config"
	"github.com/shopmind/shopmind/internal/events"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/handlers"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/identity"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/realtime"
	"github.com/shopmind/shopmind/internal/search"
	"github.com/shopmind/shopmind/internal/token"
	httpserver "github.com/shopmind/shopmind/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, realtime fan-out limited to this node", "error", err)
		}
		cancel()
	}

	es, err := search.NewClient(cfg)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		es = nil
	}

	tokens := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	resolver := &identity.Resolver{DB: db, Tokens: tokens}
	hub := realtime.NewHub()
	dispatcher := realtime.NewRedisDispatcher(rdb)
	engine := &ai.Engine{Client: ai.NewClient(cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel)}

	relayCtx, stopRelay := context.WithCancel(logging.IntoContext(context.Background(), logger))
	go realtime.Relay(relayCtx, rdb, hub)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpapi.ErrorHandler
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(logger))

	deps := &httpserver.Deps{
		Gate:          &middleware.Gate{Resolver: resolver},
		Auth:          &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: producer},
		Products:      &handlers.ProductHandler{DB: db, ES: es},
		Customers:     &handlers.CustomerHandler{DB: db},
		Orders:        &handlers.OrderHandler{DB: db, Producer: producer},
		Conversations: &handlers.ConversationHandler{DB: db, Producer: producer, Dispatcher: dispatcher},
		Channels:      &handlers.ChannelHandler{DB: db},
		Users:         &handlers.UserHandler{DB: db},
		Analytics:     &handlers.AnalyticsHandler{DB: db},
		PaymentHook:   &handlers.PaymentWebhookHandler{DB: db, Secret: cfg.PaymentSecret, Producer: producer, Dispatcher: dispatcher},
		Inbound:       &handlers.InboundHandler{DB: db, Engine: engine, Producer: producer, Dispatcher: dispatcher},
		Realtime:      &realtime.Server{Resolver: resolver, Hub: hub, Dispatcher: dispatcher},
	}
	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopRelay()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("shutdown complete")
}
