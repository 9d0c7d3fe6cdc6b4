package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/raid-controller/internal/persistence"
)

// WipeRepository implements persistence.WipeRepository.
type WipeRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewWipeRepository returns a repository bound to pool.
func NewWipeRepository(pool *ConnectionPool) *WipeRepository {
	return &WipeRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// RecordWipe inserts a wipe.
func (r *WipeRepository) RecordWipe(ctx context.Context, wipe persistence.Wipe) error {
	if wipe.ID == "" || wipe.At.IsZero() {
		return persistence.ErrConstraintViolation
	}
	recordedAt := wipe.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = wipe.At
	}

	const query = `
		INSERT INTO wipes (id, at_unix_ns, reason, recorded_at_unix_ns)
		VALUES (?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query, wipe.ID, wipe.At.UnixNano(), wipe.Reason, recordedAt.UnixNano())
		return err
	})
}

// LatestWipe returns the wipe with the greatest timestamp.
func (r *WipeRepository) LatestWipe(ctx context.Context) (persistence.Wipe, error) {
	const query = `
		SELECT id, at_unix_ns, reason, recorded_at_unix_ns
		FROM wipes
		ORDER BY at_unix_ns DESC, rowid DESC
		LIMIT 1`
	wipe, err := scanWipe(r.pool.DB().QueryRowContext(ctx, query))
	if err != nil {
		return persistence.Wipe{}, r.mapper.MapError(err)
	}
	return wipe, nil
}

// ListWipes returns wipes newest first.
func (r *WipeRepository) ListWipes(ctx context.Context, limit int) ([]persistence.Wipe, error) {
	if limit <= 0 {
		limit = -1
	}
	const query = `
		SELECT id, at_unix_ns, reason, recorded_at_unix_ns
		FROM wipes
		ORDER BY at_unix_ns DESC, rowid DESC
		LIMIT ?`

	var wipes []persistence.Wipe
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			wipe, err := scanWipe(rows)
			if err != nil {
				return err
			}
			wipes = append(wipes, wipe)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list wipes: %w", r.mapper.MapError(err))
	}
	return wipes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWipe(row rowScanner) (persistence.Wipe, error) {
	var (
		wipe       persistence.Wipe
		at         int64
		recordedAt int64
	)
	if err := row.Scan(&wipe.ID, &at, &wipe.Reason, &recordedAt); err != nil {
		return persistence.Wipe{}, err
	}
	wipe.At = time.Unix(0, at).UTC()
	wipe.RecordedAt = time.Unix(0, recordedAt).UTC()
	return wipe, nil
}
