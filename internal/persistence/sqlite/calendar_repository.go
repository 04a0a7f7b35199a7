package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/shift-scheduler/internal/persistence"
)

// CalendarRepository implements persistence.CalendarRepository using SQLite.
// Entry times are stored as RFC3339 text in UTC with nanosecond precision.
type CalendarRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewCalendarRepository creates a new SQLite calendar repository
func NewCalendarRepository(pool *ConnectionPool, retry *RetryHelper) *CalendarRepository {
	return &CalendarRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  retry,
	}
}

// ListCalendars returns the calendars in stored order, each with its entries
// in stored order.
func (r *CalendarRepository) ListCalendars(ctx context.Context) ([]persistence.Calendar, error) {
	var calendars []persistence.Calendar
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		if calendars, err = r.listCalendarsTx(ctx, tx); err != nil {
			return err
		}

		index := make(map[string]int, len(calendars))
		for i, cal := range calendars {
			index[cal.Name] = i
		}

		rows, err := r.helper.QueryTx(ctx, tx, `
			SELECT calendar_name, id, title, location, start_time, end_time, full_day
			FROM entries
			ORDER BY calendar_name ASC, position ASC`)
		if err != nil {
			return r.mapper.MapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				calendarName string
				entry        persistence.Entry
				start, end   string
			)
			if err := rows.Scan(&calendarName, &entry.ID, &entry.Title, &entry.Location, &start, &end, &entry.FullDay); err != nil {
				return r.mapper.MapError(err)
			}
			if entry.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
				return fmt.Errorf("sqlite: entry %s start_time: %w", entry.ID, err)
			}
			if entry.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
				return fmt.Errorf("sqlite: entry %s end_time: %w", entry.ID, err)
			}
			i, ok := index[calendarName]
			if !ok {
				return fmt.Errorf("%w: entry %s references unknown calendar %s", persistence.ErrConstraintViolation, entry.ID, calendarName)
			}
			calendars[i].Entries = append(calendars[i].Entries, entry)
		}
		return r.mapper.MapError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

func (r *CalendarRepository) listCalendarsTx(ctx context.Context, tx *sql.Tx) ([]persistence.Calendar, error) {
	rows, err := r.helper.QueryTx(ctx, tx, `SELECT name FROM calendars ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var calendars []persistence.Calendar
	for rows.Next() {
		var cal persistence.Calendar
		if err := rows.Scan(&cal.Name); err != nil {
			return nil, r.mapper.MapError(err)
		}
		calendars = append(calendars, cal)
	}
	return calendars, r.mapper.MapError(rows.Err())
}

// ReplaceCalendars overwrites every stored calendar and entry. Entry ids must
// be unique across calendars.
func (r *CalendarRepository) ReplaceCalendars(ctx context.Context, calendars []persistence.Calendar) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			// Entries go with their calendars through ON DELETE CASCADE.
			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM calendars`); err != nil {
				return r.mapper.MapError(err)
			}
			for i, cal := range calendars {
				if _, err := r.helper.ExecTx(ctx, tx, `INSERT INTO calendars (name, position) VALUES (?, ?)`, cal.Name, i); err != nil {
					return r.mapper.MapError(err)
				}
				for j, entry := range cal.Entries {
					if entry.End.Before(entry.Start) {
						return fmt.Errorf("%w: entry %s ends before it starts", persistence.ErrConstraintViolation, entry.ID)
					}
					_, err := r.helper.ExecTx(ctx, tx, `
						INSERT INTO entries (id, calendar_name, title, location, start_time, end_time, full_day, position)
						VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
						entry.ID,
						cal.Name,
						entry.Title,
						entry.Location,
						entry.Start.UTC().Format(time.RFC3339Nano),
						entry.End.UTC().Format(time.RFC3339Nano),
						entry.FullDay,
						j,
					)
					if err != nil {
						return r.mapper.MapError(err)
					}
				}
			}
			return nil
		})
	})
}
