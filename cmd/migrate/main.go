package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"taskmanager/config"
	"taskmanager/internal/importer"
	"taskmanager/internal/repository"
	"taskmanager/internal/sheets"
	"taskmanager/pkg/db"
	"taskmanager/pkg/logger"
	"taskmanager/pkg/outbox"
)

func main() {
	importSheet := flag.Bool("import-sheet", false, "copy the configured spreadsheet into PostgreSQL after migrating")
	replayOutbox := flag.Bool("replay-outbox", false, "move failed outbox events back to pending after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		logger.NewLogger().Fatal("Failed to init logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	applied, err := repository.Migrate(ctx, pool, log)
	if err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("Schema up to date", zap.Strings("applied", applied))

	if *replayOutbox {
		n, err := outbox.NewRepository(pool).ReplayFailed(ctx)
		if err != nil {
			log.Fatal("Outbox replay failed", zap.Error(err))
		}
		log.Info("Outbox events requeued", zap.Int64("count", n))
	}

	if !*importSheet {
		return
	}
	if cfg.Sheets.SpreadsheetID == "" {
		log.Fatal("sheets.spreadsheet_id is required for -import-sheet")
	}

	loc, _ := cfg.Location()
	srv, err := sheets.NewService(ctx, cfg.Sheets)
	if err != nil {
		log.Fatal("Failed to init Sheets client", zap.Error(err))
	}
	src := sheets.NewClient(srv, cfg.Sheets, loc, log)

	res, err := importer.New(src,
		repository.NewUserRepository(pool, log),
		repository.NewTaskRepository(pool, log),
		log,
	).Run(ctx)
	if err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}
	log.Info("Import complete",
		zap.Int("users", res.Users),
		zap.Bool("users_skipped", res.UsersSkipped),
		zap.Int("tasks", res.Tasks),
	)
}
