package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/shift-scheduler/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite
type ProfileRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewProfileRepository creates a new SQLite profile repository
func NewProfileRepository(pool *ConnectionPool, retry *RetryHelper) *ProfileRepository {
	return &ProfileRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  retry,
	}
}

// ListProfiles returns every profile ordered by name.
func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]persistence.Profile, error) {
	var profiles []persistence.Profile
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := r.helper.QueryTx(ctx, tx, `
			SELECT name, working_hours, email, job, preferred_shift, age
			FROM profiles
			ORDER BY name ASC`)
		if err != nil {
			return r.mapper.MapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var p persistence.Profile
			if err := rows.Scan(&p.Name, &p.WorkingHours, &p.Email, &p.Job, &p.PreferredShift, &p.Age); err != nil {
				return r.mapper.MapError(err)
			}
			profiles = append(profiles, p)
		}
		return r.mapper.MapError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// ReplaceProfiles overwrites the stored profiles. Two profiles with the same
// name fail with persistence.ErrDuplicate and nothing is written.
func (r *ProfileRepository) ReplaceProfiles(ctx context.Context, profiles []persistence.Profile) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM profiles`); err != nil {
				return r.mapper.MapError(err)
			}
			for _, p := range profiles {
				_, err := r.helper.ExecTx(ctx, tx, `
					INSERT INTO profiles (name, working_hours, email, job, preferred_shift, age)
					VALUES (?, ?, ?, ?, ?, ?)`,
					p.Name, p.WorkingHours, p.Email, p.Job, p.PreferredShift, p.Age,
				)
				if err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}
