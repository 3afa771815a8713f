// Package relstore is the relational store adapter (C2): schema
// migrations, candidate-ledger tables, fragment I/O, saturation curve,
// and audit logging, all via raw SQL over a pooled pgx connection.
//
// Grounded on the teacher's pkg/database/client.go: pgx DSN
// construction, golang-migrate applied via an embedded iofs source at
// boot, and GIN full-text indexes created as a dedicated post-migration
// step. Unlike the teacher, there is no ent wrapper here — ent requires
// code generation this module does not run, so every operation below
// is hand-written SQL in the idiom of the original system's
// postgres_block.py.
package relstore

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	stdsql "database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qualcode/nucleus/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a pooled pgx connection and exposes the relational store
// adapter's operations as methods (see fragments.go, candidates.go,
// audit.go, saturation.go, discovery.go).
type Store struct {
	Pool *pgxpool.Pool
}

// New opens the pool, applies migrations, and creates the full-text
// indexes that C6 depends on.
func New(ctx context.Context, cfg config.RelationalConfig) (*Store, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslModeOrDefault(cfg.SSLMode),
	)
	if cfg.SearchPath != "" {
		dsn += "&search_path=" + cfg.SearchPath
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse relational dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open relational pool: %w", err)
	}

	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{Pool: pool}
	if err := store.createFullTextIndexes(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create full-text indexes: %w", err)
	}

	return store, nil
}

func sslModeOrDefault(mode string) string {
	if mode == "" {
		return "disable"
	}
	return mode
}

// runMigrations applies every embedded migration in order via a
// short-lived stdlib *sql.DB, separate from the pgxpool used for
// runtime queries. golang-migrate's Close() would close that *sql.DB,
// so we only close the source driver, mirroring the teacher's client.go.
func runMigrations(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	if err := sourceDriver.Close(); err != nil {
		slog.Warn("failed to close migration source driver", "error", err)
	}
	return nil
}

// createFullTextIndexes creates the GIN indexes C6's lexical rank
// depends on. Idempotent: uses IF NOT EXISTS.
func (s *Store) createFullTextIndexes(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_fragments_text_gin
		ON fragments USING gin (to_tsvector('spanish', text))
	`)
	return err
}

// Close releases the pool. Safe to call once at process shutdown (A3).
func (s *Store) Close() {
	s.Pool.Close()
}
