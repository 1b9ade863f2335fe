package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Mailcast/internal/metrics"
	"Mailcast/internal/models"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type NewsletterStore interface {
	GetNewsletter(ctx context.Context, id int64) (*models.Newsletter, error)
	GetTaskByName(ctx context.Context, name string) (*models.PeriodicTask, error)
}

// TaskRetirer removes a newsletter's periodic task once it has expired.
type TaskRetirer interface {
	Delete(ctx context.Context, nl *models.Newsletter) error
}

// TriggerDropper forgets a trigger whose task no longer exists.
type TriggerDropper interface {
	TaskDeleted(name string)
}

type Dispatcher struct {
	store    NewsletterStore
	tasks    TaskRetirer
	engine   *Engine
	triggers TriggerDropper
	clock    Clock
	log      *zap.Logger
}

func NewDispatcher(store NewsletterStore, tasks TaskRetirer, engine *Engine, triggers TriggerDropper, clock Clock, log *zap.Logger) *Dispatcher {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Dispatcher{
		store:    store,
		tasks:    tasks,
		engine:   engine,
		triggers: triggers,
		clock:    clock,
		log:      log,
	}
}

// Fire runs one scheduled firing of a newsletter. Every decision re-reads
// the newsletter and its task from the store.
func (d *Dispatcher) Fire(ctx context.Context, newsletterID int64) error {
	log := d.log.With(
		zap.String("run_id", uuid.NewString()),
		zap.Int64("newsletter_id", newsletterID),
	)

	nl, err := d.store.GetNewsletter(ctx, newsletterID)
	if errors.Is(err, models.ErrNotFound) {
		log.Warn("firing for unknown newsletter ignored")
		metrics.Firings.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		metrics.Firings.WithLabelValues("error").Inc()
		return fmt.Errorf("load newsletter %d: %w", newsletterID, err)
	}

	name := models.TaskName(nl.ID)
	if _, err := d.store.GetTaskByName(ctx, name); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("stale trigger, task no longer exists", zap.String("task", name))
			if d.triggers != nil {
				d.triggers.TaskDeleted(name)
			}
			metrics.Firings.WithLabelValues("skipped").Inc()
			return nil
		}
		metrics.Firings.WithLabelValues("error").Inc()
		return fmt.Errorf("load task %s: %w", name, err)
	}

	expired, err := IsExpired(nl, d.clock.Now())
	if err != nil {
		metrics.Firings.WithLabelValues("error").Inc()
		return err
	}
	if expired {
		log.Info("newsletter finish time reached, retiring task",
			zap.String("finish_date", nl.FinishDate),
			zap.String("finish_time", nl.FinishTime),
		)
		if err := d.tasks.Delete(ctx, nl); err != nil {
			metrics.Firings.WithLabelValues("error").Inc()
			return fmt.Errorf("retire newsletter %d: %w", nl.ID, err)
		}
		metrics.Expired.Inc()
		metrics.Firings.WithLabelValues("expired").Inc()
		return nil
	}

	if !nl.IsActive {
		log.Info("newsletter is inactive, skipping dispatch")
		metrics.Firings.WithLabelValues("skipped").Inc()
		return nil
	}

	start := time.Now()
	report, err := d.engine.Run(ctx, nl)
	if err != nil {
		metrics.Firings.WithLabelValues("error").Inc()
		return err
	}

	metrics.Firings.WithLabelValues("dispatched").Inc()
	log.Info("newsletter dispatched",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", time.Since(start)),
	)

	return nil
}
