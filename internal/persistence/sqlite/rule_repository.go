package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/shift-scheduler/internal/persistence"
)

// RuleRepository implements persistence.RuleRepository using SQLite
type RuleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRuleRepository creates a new SQLite rule repository
func NewRuleRepository(pool *ConnectionPool, retry *RetryHelper) *RuleRepository {
	return &RuleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  retry,
	}
}

// ListRules returns every rule ordered by position.
func (r *RuleRepository) ListRules(ctx context.Context) ([]persistence.Rule, error) {
	var rules []persistence.Rule
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := r.helper.QueryTx(ctx, tx, `
			SELECT id, field, operator, value, active, position
			FROM rules
			ORDER BY position ASC, id ASC`)
		if err != nil {
			return r.mapper.MapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var rule persistence.Rule
			if err := rows.Scan(&rule.ID, &rule.Field, &rule.Operator, &rule.Value, &rule.Active, &rule.Position); err != nil {
				return r.mapper.MapError(err)
			}
			rules = append(rules, rule)
		}
		return r.mapper.MapError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ReplaceRules overwrites the stored rules with rules. The slice order
// becomes the stored position.
func (r *RuleRepository) ReplaceRules(ctx context.Context, rules []persistence.Rule) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM rules`); err != nil {
				return r.mapper.MapError(err)
			}
			for i, rule := range rules {
				if rule.ID == "" {
					return persistence.ErrConstraintViolation
				}
				_, err := r.helper.ExecTx(ctx, tx,
					`INSERT INTO rules (id, field, operator, value, active, position) VALUES (?, ?, ?, ?, ?, ?)`,
					rule.ID, rule.Field, rule.Operator, rule.Value, rule.Active, i,
				)
				if err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}
