package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/raid-controller/internal/persistence"
	"github.com/example/raid-controller/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the connection pool and the repositories built on it.
type Storage struct {
	pool     *ConnectionPool
	logger   *slog.Logger
	wipes    *WipeRepository
	ruleSets *RuleSetRepository
}

var (
	_ persistence.WipeRepository    = (*WipeRepository)(nil)
	_ persistence.RuleSetRepository = (*RuleSetRepository)(nil)
)

// Open connects to the database described by config and applies the
// embedded migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	storage := &Storage{
		pool:     pool,
		logger:   logger,
		wipes:    NewWipeRepository(pool),
		ruleSets: NewRuleSetRepository(pool),
	}
	if err := storage.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return storage, nil
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Wipes returns the wipe history repository.
func (s *Storage) Wipes() *WipeRepository { return s.wipes }

// RuleSets returns the rule set repository.
func (s *Storage) RuleSets() *RuleSetRepository { return s.ruleSets }

// Ping checks the connection.
func (s *Storage) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the connection pool.
func (s *Storage) Close() error { return s.pool.Close() }
