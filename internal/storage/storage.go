// Package storage opens the record store selected by store.driver.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskmanager/config"
	"taskmanager/internal/memstore"
	"taskmanager/internal/repository"
	"taskmanager/internal/sheets"
	"taskmanager/pkg/db"
)

const (
	DriverPostgres = "postgres"
	DriverSheets   = "sheets"
	DriverMemory   = "memory"
)

// Stores bundles one driver's views. Activity is nil for the sheets driver,
// which has no activity tab.
type Stores struct {
	Driver   string
	Tasks    repository.TaskStore
	Users    repository.UserStore
	Activity repository.ActivityStore
	Pinger   repository.Pinger

	// Pool is set for the postgres driver.
	Pool *pgxpool.Pool
}

func (s *Stores) Ping(ctx context.Context) error {
	return s.Pinger.Ping(ctx)
}

func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Open connects the configured driver. loc is used by the sheets driver to
// read and write the local creation clock.
func Open(ctx context.Context, cfg *config.Config, loc *time.Location, log *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case DriverPostgres:
		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			return nil, err
		}
		tasks := repository.NewTaskRepository(pool, log)
		return &Stores{
			Driver:   DriverPostgres,
			Tasks:    tasks,
			Users:    repository.NewUserRepository(pool, log),
			Activity: repository.NewActivityRepository(pool, log),
			Pinger:   tasks,
			Pool:     pool,
		}, nil

	case DriverSheets:
		srv, err := sheets.NewService(ctx, cfg.Sheets)
		if err != nil {
			return nil, err
		}
		client := sheets.NewClient(srv, cfg.Sheets, loc, log)
		return &Stores{
			Driver: DriverSheets,
			Tasks:  client.Tasks(),
			Users:  client.Users(),
			Pinger: client,
		}, nil

	case DriverMemory:
		mem := memstore.New()
		return &Stores{
			Driver:   DriverMemory,
			Tasks:    mem.Tasks(),
			Users:    mem.Users(),
			Activity: mem.Activity(),
			Pinger:   mem,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
