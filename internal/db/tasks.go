package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"Mailcast/internal/models"
)

const taskColumns = `t.id, t.name, t.schedule_id, t.action, t.newsletter_id, t.enabled, t.created_at,
	s.minute, s.hour, s.day_of_week, s.day_of_month, s.month_of_year`

func scanTask(row pgx.Row) (*models.PeriodicTask, error) {
	var t models.PeriodicTask
	err := row.Scan(
		&t.ID, &t.Name, &t.ScheduleID, &t.Action, &t.NewsletterID, &t.Enabled, &t.CreatedAt,
		&t.Descriptor.Minute, &t.Descriptor.Hour, &t.Descriptor.DayOfWeek,
		&t.Descriptor.DayOfMonth, &t.Descriptor.MonthOfYear,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, task *models.PeriodicTask) error {
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO periodic_tasks
		 (name, schedule_id, action, newsletter_id, enabled, created_at)
		 VALUES ($1,$2,$3,$4,$5,NOW())
		 RETURNING id, created_at`,
		task.Name,
		task.ScheduleID,
		task.Action,
		task.NewsletterID,
		task.Enabled,
	).Scan(&task.ID, &task.CreatedAt)

	return mapError(err)
}

func (s *Store) GetTaskByName(ctx context.Context, name string) (*models.PeriodicTask, error) {
	return scanTask(s.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+`
		 FROM periodic_tasks t
		 JOIN schedules s ON s.id = t.schedule_id
		 WHERE t.name=$1`,
		name,
	))
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM periodic_tasks WHERE id=$1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) ListEnabledTasks(ctx context.Context) ([]models.PeriodicTask, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM periodic_tasks t
		 JOIN schedules s ON s.id = t.schedule_id
		 WHERE t.enabled
		 ORDER BY t.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.PeriodicTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}

	return tasks, rows.Err()
}
