package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/raid-controller/internal/persistence"
	"github.com/example/raid-controller/internal/persistence/sqlite"
	"github.com/example/raid-controller/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite file.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Wipes    persistence.WipeRepository
	RuleSets persistence.RuleSetRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens storage under tb.TempDir and registers Close with
// tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "raidctl.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage, err := sqlite.Open(context.Background(), migration.TempFileTestSQLiteConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Wipes:    storage.Wipes(),
		RuleSets: storage.RuleSets(),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
