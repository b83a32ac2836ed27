package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskmanager/config"
	mqcontracts "taskmanager/contracts/mq"
	"taskmanager/internal/mqhandler"
	"taskmanager/internal/repository"
	"taskmanager/pkg/db"
	"taskmanager/pkg/logger"
	"taskmanager/pkg/mq"
	redisclient "taskmanager/pkg/redis"
	"taskmanager/pkg/util"
)

const activityQueue = "task.status_changed.activity.q"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logger.NewLogger().Fatal("Failed to init logger", zap.Error(err))
	}
	defer log.Sync()

	if cfg.MQ.URL == "" {
		log.Fatal("mq.url is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting worker...", zap.String("queue", activityQueue))

	// Init DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established")

	// Init Redis; without it dedup is skipped and retries are counted in memory
	rdb := redisclient.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		if err := redisclient.Ping(ctx, rdb); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// Dead letters go out through a publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	activityHandler := mqhandler.NewActivityHandler(repository.NewActivityRepository(dbConn, log), deduper, log)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, activityQueue, mqcontracts.RoutingTaskStatusChanged, mq.RetryPolicy{
		MaxRetries: cfg.MQ.MaxRetries,
		Counter:    retryCounter,
		DLQ:        publisher,
	}, log)
	if err != nil {
		log.Fatal("Failed to init activity consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(activityHandler.HandleStatusChanged)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.StartConsuming(ctx); err != nil {
			log.Error("Activity consumer stopped", zap.Error(err))
			stop()
		}
	}()
	log.Info("Worker is ready to process messages")

	<-ctx.Done()
	log.Info("Shutting down worker...")
	wg.Wait()
	log.Info("Worker stopped")
}
