package factory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/babylog/babylog/internal/config"
	storepkg "github.com/babylog/babylog/internal/store"
	storepg "github.com/babylog/babylog/internal/store/postgres"
	storesqlite "github.com/babylog/babylog/internal/store/sqlite"
)

// NewStore returns an event store for the configured driver.
// The connection opens synchronously so health checks can probe it
// immediately; schema bootstrap runs async so startup stays fast.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.EventStore, error) {
	var (
		db        *sql.DB
		bootstrap func(context.Context, *sql.DB) error
		mk        func(*sql.DB) storepkg.EventStore
		err       error
	)

	switch cfg.DBDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("BABYLOG_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err = storepg.Open(cfg.PostgresDSN)
		bootstrap = storepg.Bootstrap
		mk = storepg.NewWithDB
	case "sqlite":
		db, err = storesqlite.Open(cfg.SQLitePath)
		bootstrap = storesqlite.Bootstrap
		mk = storesqlite.NewWithDB
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
	if err != nil {
		return nil, err
	}

	go func() {
		bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
		bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer cancel()

		if err := bootstrap(bootstrapCtx, db); err != nil {
			log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store bootstrap failed")
		} else {
			log.Debug().Str("driver", cfg.DBDriver).Msg("store bootstrap completed")
		}
	}()

	return mk(db), nil
}
