package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsTable is the goose version table for the event_data schema.
const MigrationsTable = "goose_commerce_events"

// MigrationState describes one migration file and whether it is applied.
type MigrationState struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Migrate applies pending event_data migrations and logs each one applied.
func Migrate(ctx context.Context, databaseURL string, logger *slog.Logger) error {
	return withProvider(databaseURL, func(p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, r := range results {
			logger.Info("migration applied",
				"version", r.Source.Version,
				"path", r.Source.Path,
				"duration", r.Duration,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		if len(results) == 0 {
			logger.Info("schema is up to date")
		}
		return nil
	})
}

// MigrationStatus lists every embedded migration with its applied state.
func MigrationStatus(ctx context.Context, databaseURL string) ([]MigrationState, error) {
	var states []MigrationState
	err := withProvider(databaseURL, func(p *goose.Provider) error {
		status, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		for _, s := range status {
			states = append(states, MigrationState{
				Version:   s.Source.Version,
				Path:      s.Source.Path,
				Applied:   s.State == goose.StateApplied,
				AppliedAt: s.AppliedAt,
			})
		}
		return nil
	})
	return states, err
}

// withProvider opens a short-lived database/sql handle for goose, which
// does not work with pgxpool.
func withProvider(databaseURL string, fn func(*goose.Provider) error) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	defer db.Close()

	p, err := NewMigrationProvider(db, Migrations, "migrations", MigrationsTable)
	if err != nil {
		return err
	}
	return fn(p)
}

// NewMigrationProvider builds a goose provider over the SQL files in dir of
// fsys, tracking versions in table.
func NewMigrationProvider(db *sql.DB, fsys fs.FS, dir, table string) (*goose.Provider, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations directory %s: %w", dir, err)
	}

	store, err := database.NewStore(database.DialectPostgres, table)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration store: %w", err)
	}

	p, err := goose.NewProvider("", db, sub, goose.WithStore(store))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return p, nil
}
