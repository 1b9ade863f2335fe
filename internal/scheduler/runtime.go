// Package scheduler turns stored periodic tasks into live cron triggers.
// The store stays authoritative: the runtime only holds entry handles and
// re-syncs them on every reconcile.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"Mailcast/internal/metrics"
	"Mailcast/internal/models"
	"Mailcast/internal/schedule"
)

type TaskLister interface {
	ListEnabledTasks(ctx context.Context) ([]models.PeriodicTask, error)
}

type entry struct {
	id           cron.EntryID
	spec         string
	newsletterID int64
}

type Runtime struct {
	store TaskLister
	jobs  chan<- models.FiringJob
	loc   *time.Location
	log   *zap.Logger

	mu      sync.Mutex
	c       *cron.Cron
	entries map[string]entry
	// gen counts TaskCreated/TaskDeleted calls
	gen uint64
}

// NewRuntime builds a trigger runtime that evaluates schedules in loc and
// pushes firings to jobs. nil loc means UTC.
func NewRuntime(store TaskLister, jobs chan<- models.FiringJob, loc *time.Location, log *zap.Logger) *Runtime {
	if loc == nil {
		loc = time.UTC
	}
	return &Runtime{
		store:   store,
		jobs:    jobs,
		loc:     loc,
		log:     log,
		c:       cron.New(cron.WithParser(schedule.Parser), cron.WithLocation(loc)),
		entries: map[string]entry{},
	}
}

func (r *Runtime) Start() {
	r.c.Start()
	r.log.Info("trigger runtime started", zap.String("tz", r.loc.String()))
}

// Stop halts the cron clock and waits for in-flight trigger callbacks, or
// until ctx is done.
func (r *Runtime) Stop(ctx context.Context) {
	select {
	case <-r.c.Stop().Done():
	case <-ctx.Done():
	}
	r.log.Info("trigger runtime stopped")
}

// TaskCreated installs or replaces the trigger for task.
func (r *Runtime) TaskCreated(task models.PeriodicTask) {
	if !task.Enabled {
		r.TaskDeleted(task.Name)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.addLocked(task)
}

// TaskDeleted removes the trigger for name if one is installed.
func (r *Runtime) TaskDeleted(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.removeLocked(name)
}

// Reconcile makes the installed triggers match the enabled tasks in the
// store. A snapshot that raced with TaskCreated or TaskDeleted is discarded;
// the next reconcile picks up from there.
func (r *Runtime) Reconcile(ctx context.Context) error {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	tasks, err := r.store.ListEnabledTasks(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != gen {
		r.log.Debug("task changed during reconcile, snapshot discarded")
		return nil
	}

	want := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		want[t.Name] = struct{}{}
		r.addLocked(t)
	}
	for name := range r.entries {
		if _, ok := want[name]; !ok {
			r.removeLocked(name)
		}
	}

	r.log.Debug("triggers reconciled", zap.Int("tasks", len(r.entries)))
	return nil
}

// RunReconciler re-syncs triggers every interval until ctx is done.
func (r *Runtime) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				r.log.Error("trigger reconcile failed", zap.Error(err))
			}
		}
	}
}

// Scheduled returns the installed trigger specs by task name.
func (r *Runtime) Scheduled() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.spec
	}
	return out
}

func (r *Runtime) addLocked(task models.PeriodicTask) {
	spec := task.Descriptor.Spec()
	if cur, ok := r.entries[task.Name]; ok {
		if cur.spec == spec && cur.newsletterID == task.NewsletterID {
			return
		}
		r.c.Remove(cur.id)
		delete(r.entries, task.Name)
	}

	name, newsletterID := task.Name, task.NewsletterID
	id, err := r.c.AddFunc(spec, func() { r.enqueue(name, newsletterID) })
	if err != nil {
		r.log.Error("invalid task schedule",
			zap.String("task", task.Name),
			zap.String("spec", spec),
			zap.Error(err),
		)
		return
	}

	r.entries[task.Name] = entry{id: id, spec: spec, newsletterID: newsletterID}
	metrics.ScheduledTasks.Set(float64(len(r.entries)))
}

func (r *Runtime) removeLocked(name string) {
	cur, ok := r.entries[name]
	if !ok {
		return
	}
	r.c.Remove(cur.id)
	delete(r.entries, name)
	metrics.ScheduledTasks.Set(float64(len(r.entries)))
}

func (r *Runtime) enqueue(name string, newsletterID int64) {
	job := models.FiringJob{
		NewsletterID: newsletterID,
		TaskName:     name,
		TriggeredAt:  time.Now().In(r.loc),
	}

	select {
	case r.jobs <- job:
	default:
		metrics.Firings.WithLabelValues("dropped").Inc()
		r.log.Warn("firing queue full, trigger dropped",
			zap.String("task", name),
			zap.Int64("newsletter_id", newsletterID),
		)
	}
}
