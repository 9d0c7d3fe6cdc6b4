package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/raid-controller/internal/persistence"
)

// RuleSetRepository implements persistence.RuleSetRepository.
type RuleSetRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRuleSetRepository returns a repository bound to pool.
func NewRuleSetRepository(pool *ConnectionPool) *RuleSetRepository {
	return &RuleSetRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// SaveRuleSet stores a rules document. An empty checksum is computed.
func (r *RuleSetRepository) SaveRuleSet(ctx context.Context, ruleSet persistence.RuleSet) error {
	if ruleSet.ID == "" || len(ruleSet.Document) == 0 || ruleSet.CreatedAt.IsZero() {
		return persistence.ErrConstraintViolation
	}
	if ruleSet.Checksum == "" {
		ruleSet.Checksum = persistence.Checksum(ruleSet.Document)
	}

	const query = `
		INSERT INTO rule_sets (id, document, checksum, created_at_unix_ns)
		VALUES (?, ?, ?, ?)`
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.DB().ExecContext(ctx, query, ruleSet.ID, ruleSet.Document, ruleSet.Checksum, ruleSet.CreatedAt.UnixNano())
		return err
	})
}

// LatestRuleSet returns the most recently saved rule set.
func (r *RuleSetRepository) LatestRuleSet(ctx context.Context) (persistence.RuleSet, error) {
	const query = `
		SELECT id, document, checksum, created_at_unix_ns
		FROM rule_sets
		ORDER BY created_at_unix_ns DESC, rowid DESC
		LIMIT 1`
	ruleSet, err := scanRuleSet(r.pool.DB().QueryRowContext(ctx, query))
	if err != nil {
		return persistence.RuleSet{}, r.mapper.MapError(err)
	}
	return ruleSet, nil
}

// ListRuleSets returns rule sets newest first. A limit <= 0 returns all.
func (r *RuleSetRepository) ListRuleSets(ctx context.Context, limit int) ([]persistence.RuleSet, error) {
	if limit <= 0 {
		limit = -1
	}
	const query = `
		SELECT id, document, checksum, created_at_unix_ns
		FROM rule_sets
		ORDER BY created_at_unix_ns DESC, rowid DESC
		LIMIT ?`

	var ruleSets []persistence.RuleSet
	err := r.pool.WithReadOnlyTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			ruleSet, err := scanRuleSet(rows)
			if err != nil {
				return err
			}
			ruleSets = append(ruleSets, ruleSet)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list rule sets: %w", r.mapper.MapError(err))
	}
	return ruleSets, nil
}

func scanRuleSet(row rowScanner) (persistence.RuleSet, error) {
	var (
		ruleSet   persistence.RuleSet
		createdAt int64
	)
	if err := row.Scan(&ruleSet.ID, &ruleSet.Document, &ruleSet.Checksum, &createdAt); err != nil {
		return persistence.RuleSet{}, err
	}
	ruleSet.CreatedAt = time.Unix(0, createdAt).UTC()
	return ruleSet, nil
}
