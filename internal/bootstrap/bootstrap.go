// Package bootstrap wires the application together: it opens the database,
// ensures the schema, and constructs the store, event listener, query
// rewriter and migrator with explicit dependencies.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/roleindex/roleindex/internal/config"
	"github.com/roleindex/roleindex/internal/db/dsn"
	"github.com/roleindex/roleindex/internal/migrate"
	"github.com/roleindex/roleindex/internal/platform"
	"github.com/roleindex/roleindex/internal/query"
	"github.com/roleindex/roleindex/internal/roleindex"
)

// App holds the wired application components.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    *roleindex.Store
	Listener *roleindex.Listener
	Rewriter *query.Rewriter
	Migrator *migrate.Migrator
}

// New opens the configured database, ensures the schema and wires every
// component. The directory is injected by the host platform; tests pass a
// platform.Fake.
func New(ctx context.Context, cfg *config.Config, dir platform.Directory) (*App, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to select database driver: %w", err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	store, err := roleindex.NewStore(db, dir)
	if err != nil {
		return nil, err
	}

	result, err := store.CreateSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	log.Debug().Str("result", string(result)).Msg("schema ensured")

	rewriter, err := query.NewRewriter(store, dir, "")
	if err != nil {
		return nil, err
	}

	migrator, err := migrate.NewMigrator(store, dir, cfg.Migrate.ProgressEvery)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		DB:       db,
		Store:    store,
		Listener: roleindex.NewListener(store, dir),
		Rewriter: rewriter,
		Migrator: migrator,
	}, nil
}
