package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Ksenialiashchuk/test-portal/internal/api"
	"github.com/Ksenialiashchuk/test-portal/internal/config"
	"github.com/Ksenialiashchuk/test-portal/internal/database"
	"github.com/Ksenialiashchuk/test-portal/internal/memstore"
	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

// stores bundles the repositories for the configured database driver.
type stores struct {
	roles    role.Repository
	users    user.Repository
	orgs     organization.Repository
	missions mission.Repository
	pinger   api.Pinger
	pool     *pgxpool.Pool // nil for the memory driver
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		slog.Warn("using the in-memory database; all data is lost on exit")
		db := memstore.New()
		return &stores{
			roles:    db.Roles(),
			users:    db.Users(),
			orgs:     db.Organizations(),
			missions: db.Missions(),
			pinger:   db,
		}, nil
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database")
		return &stores{
			roles:    role.NewStore(pool),
			users:    user.NewStore(pool),
			orgs:     organization.NewStore(pool),
			missions: mission.NewStore(pool),
			pinger:   pool,
			pool:     pool,
		}, nil
	default:
		return nil, errors.New("unknown database driver " + cfg.Database.Driver)
	}
}

// openPostgres loads the config and connects, rejecting the memory driver for
// commands whose effect would vanish on exit.
func openPostgres(ctx context.Context, command string) (*stores, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, errors.New(command + " requires the postgres driver")
	}
	return openStores(ctx, cfg)
}
