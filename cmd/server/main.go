package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanager/config"
	"taskmanager/internal/api"
	"taskmanager/internal/model"
	"taskmanager/internal/service/auth"
	"taskmanager/internal/service/task"
	"taskmanager/internal/storage"
	"taskmanager/pkg/logger"
	"taskmanager/pkg/mq"
	"taskmanager/pkg/outbox"
	redisclient "taskmanager/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewLogger()
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logger.NewLogger().Fatal("Failed to init logger", zap.Error(err))
	}
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret is required")
	}

	loc, _ := cfg.Location()
	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting task manager server",
		zap.String("store", cfg.Store.Driver),
		zap.String("port", cfg.Server.Port),
		zap.String("transition_mode", cfg.Tasks.TransitionMode),
		zap.String("timezone", loc.String()),
	)

	// Store
	stores, err := storage.Open(ctx, cfg, loc, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer stores.Close()
	log.Info("Store ready", zap.String("driver", stores.Driver))

	ready := []api.ReadyCheck{{Name: "store", Check: stores.Ping}}

	// Sessions
	var sessions auth.SessionStore = auth.NewMemorySessions()
	if rdb := redisclient.NewRedisClient(cfg.Redis); rdb != nil {
		defer rdb.Close()
		if err := redisclient.Ping(ctx, rdb); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		sessions = auth.NewRedisSessions(rdb)
		ready = append(ready, api.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisclient.Ping(ctx, rdb)
		}})
		log.Info("Redis sessions enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		log.Warn("Redis not configured, sessions are kept in process")
	}

	// Events
	var events mq.EventPublisher = mq.NoopPublisher{}
	inlineActivity := true
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init publisher", zap.Error(err))
		}
		defer publisher.Close()
		events = publisher
		inlineActivity = false

		if cfg.MQ.Outbox && stores.Pool != nil {
			outboxRepo := outbox.NewRepository(stores.Pool)
			events = outbox.NewWriter(outboxRepo)
			dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).WithMaxRetries(int(cfg.MQ.MaxRetries))
			go dispatcher.Run(ctx)
			log.Info("Outbox dispatcher enabled")
		}
		ready = append(ready, api.ReadyCheck{Name: "mq", Check: func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("publisher disconnected")
			}
			return nil
		}})
		log.Info("Event publishing enabled", zap.String("exchange", mq.ExchangeName))
	} else {
		log.Warn("MQ not configured, activity is recorded inline")
	}

	authSvc := auth.NewService(stores.Users, sessions, events, auth.Options{
		JWTSecret: cfg.JWT.Secret,
		JWTTTL:    cfg.JWT.TTL,
		Location:  loc,
	}, log)
	taskSvc := task.NewService(stores.Tasks, stores.Activity, events, task.Options{
		Transitions:    model.NewTransitions(model.TransitionMode(cfg.Tasks.TransitionMode)),
		Location:       loc,
		InlineActivity: inlineActivity,
	}, log)

	handler := api.NewHandler(authSvc, taskSvc, api.Options{
		RequireToken: cfg.Auth.RequireToken,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Location:     loc,
		Ready:        ready,
	}, log)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: api.NewRouter(handler),
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}
