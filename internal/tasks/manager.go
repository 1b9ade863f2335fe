// Package tasks owns the lifecycle of the periodic dispatch task bound to
// each newsletter.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Mailcast/internal/models"
	"Mailcast/internal/schedule"
)

type Store interface {
	CreateTask(ctx context.Context, task *models.PeriodicTask) error
	GetTaskByName(ctx context.Context, name string) (*models.PeriodicTask, error)
	DeleteTask(ctx context.Context, id int64) error
	UpdateNewsletterStatus(ctx context.Context, id int64, status models.NewsletterStatus) error
}

type Resolver interface {
	Resolve(ctx context.Context, d models.Descriptor) (models.Schedule, error)
}

// Observer is told about committed task changes so the trigger runtime can
// follow them without waiting for its next reconcile.
type Observer interface {
	TaskCreated(task models.PeriodicTask)
	TaskDeleted(name string)
}

type Manager struct {
	store    Store
	registry Resolver
	observer Observer
	loc      *time.Location
	log      *zap.Logger
}

// NewManager builds a Manager. loc is the scheduler time zone used to pick
// the weekday / day-of-month anchor; nil means UTC.
func NewManager(store Store, registry Resolver, observer Observer, loc *time.Location, log *zap.Logger) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		store:    store,
		registry: registry,
		observer: observer,
		loc:      loc,
		log:      log,
	}
}

// Create registers the periodic task for nl. It fails with
// models.ErrTaskExists if a task with the same name is still present.
func (m *Manager) Create(ctx context.Context, nl *models.Newsletter) (*models.PeriodicTask, error) {
	d := schedule.Translate(nl.FireAt, nl.Frequency, nl.CreatedAt.In(m.loc))

	s, err := m.registry.Resolve(ctx, d)
	if err != nil {
		return nil, err
	}

	task := &models.PeriodicTask{
		Name:         models.TaskName(nl.ID),
		ScheduleID:   s.ID,
		Descriptor:   s.Descriptor,
		Action:       models.DispatchAction,
		NewsletterID: nl.ID,
		Enabled:      true,
	}

	if err := m.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task %s: %w", task.Name, err)
	}

	if m.observer != nil {
		m.observer.TaskCreated(*task)
	}

	m.log.Info("periodic task created",
		zap.Int64("newsletter_id", nl.ID),
		zap.String("task", task.Name),
		zap.String("spec", task.Descriptor.Spec()),
	)

	return task, nil
}

// Delete removes the task bound to nl and marks the newsletter finished.
// A missing task is logged and ignored.
func (m *Manager) Delete(ctx context.Context, nl *models.Newsletter) error {
	name := models.TaskName(nl.ID)

	task, err := m.store.GetTaskByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		m.log.Warn("periodic task does not exist",
			zap.Int64("newsletter_id", nl.ID),
			zap.String("task", name),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get task %s: %w", name, err)
	}

	if err := m.store.DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			m.log.Warn("periodic task already removed",
				zap.Int64("newsletter_id", nl.ID),
				zap.String("task", name),
			)
			return nil
		}
		return fmt.Errorf("delete task %s: %w", name, err)
	}

	if m.observer != nil {
		m.observer.TaskDeleted(name)
	}

	if err := m.store.UpdateNewsletterStatus(ctx, nl.ID, models.StatusFinished); err != nil {
		return fmt.Errorf("finish newsletter %d: %w", nl.ID, err)
	}
	nl.Status = models.StatusFinished

	m.log.Info("periodic task deleted",
		zap.Int64("newsletter_id", nl.ID),
		zap.String("task", name),
	)

	return nil
}

// Replace re-arms nl after an edit: the old task is dropped, a new one is
// created from the current settings and the newsletter is scheduled again.
func (m *Manager) Replace(ctx context.Context, nl *models.Newsletter) (*models.PeriodicTask, error) {
	if err := m.Delete(ctx, nl); err != nil {
		return nil, err
	}

	task, err := m.Create(ctx, nl)
	if err != nil {
		return nil, err
	}

	if err := m.store.UpdateNewsletterStatus(ctx, nl.ID, models.StatusScheduled); err != nil {
		return nil, fmt.Errorf("schedule newsletter %d: %w", nl.ID, err)
	}
	nl.Status = models.StatusScheduled

	return task, nil
}
