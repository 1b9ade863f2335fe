package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"Mailcast/internal/models"
)

// rowQuerier is the part of pgxpool.Pool (and pgx.Tx) the schedule lookup
// needs.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetOrCreateSchedule returns the schedule row matching d exactly, creating
// it when absent. Concurrent callers with the same descriptor converge on
// one row through the unique constraint.
func (s *Store) GetOrCreateSchedule(ctx context.Context, d models.Descriptor) (models.Schedule, error) {
	return getOrCreateSchedule(ctx, s.Pool, d)
}

func getOrCreateSchedule(ctx context.Context, q rowQuerier, d models.Descriptor) (models.Schedule, error) {
	out := models.Schedule{Descriptor: d}

	err := q.QueryRow(ctx,
		`INSERT INTO schedules
		 (minute, hour, day_of_week, day_of_month, month_of_year)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (minute, hour, day_of_week, day_of_month, month_of_year) DO NOTHING
		 RETURNING id`,
		d.Minute, d.Hour, d.DayOfWeek, d.DayOfMonth, d.MonthOfYear,
	).Scan(&out.ID)
	if err == nil {
		return out, nil
	}
	// no row back means another writer already holds this descriptor
	if err = mapError(err); !errors.Is(err, models.ErrNotFound) {
		return models.Schedule{}, err
	}

	err = q.QueryRow(ctx,
		`SELECT id FROM schedules
		 WHERE minute=$1 AND hour=$2 AND day_of_week=$3
		   AND day_of_month=$4 AND month_of_year=$5`,
		d.Minute, d.Hour, d.DayOfWeek, d.DayOfMonth, d.MonthOfYear,
	).Scan(&out.ID)

	return out, mapError(err)
}
