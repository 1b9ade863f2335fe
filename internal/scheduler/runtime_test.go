package scheduler

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"Mailcast/internal/models"
)

type fakeLister struct {
	tasks []models.PeriodicTask
	err   error
	// during runs after the snapshot is taken, before it is returned
	during func()
}

func (f *fakeLister) ListEnabledTasks(ctx context.Context) ([]models.PeriodicTask, error) {
	tasks := f.tasks
	if f.during != nil {
		f.during()
	}
	return tasks, f.err
}

func task(id int64, minute string) models.PeriodicTask {
	return models.PeriodicTask{
		Name:         models.TaskName(id),
		NewsletterID: id,
		Enabled:      true,
		Descriptor: models.Descriptor{
			Minute:      minute,
			Hour:        "9",
			DayOfWeek:   models.Wildcard,
			DayOfMonth:  models.Wildcard,
			MonthOfYear: models.Wildcard,
		},
	}
}

func TestTaskCreatedAndDeleted(t *testing.T) {
	r := NewRuntime(&fakeLister{}, make(chan models.FiringJob, 1), nil, zap.NewNop())

	r.TaskCreated(task(1, "0"))
	r.TaskCreated(task(2, "30"))

	got := r.Scheduled()
	if len(got) != 2 || got[models.TaskName(1)] != "0 9 * * *" {
		t.Fatalf("unexpected triggers %v", got)
	}

	r.TaskDeleted(models.TaskName(1))
	r.TaskDeleted("missing")

	got = r.Scheduled()
	if len(got) != 1 {
		t.Fatalf("expected 1 trigger, got %v", got)
	}
	if _, ok := got[models.TaskName(2)]; !ok {
		t.Errorf("trigger for newsletter 2 should remain")
	}
	if n := len(r.c.Entries()); n != 1 {
		t.Errorf("expected 1 cron entry, got %d", n)
	}
}

func TestTaskCreatedReplacesChangedSpec(t *testing.T) {
	r := NewRuntime(&fakeLister{}, make(chan models.FiringJob, 1), nil, zap.NewNop())

	r.TaskCreated(task(1, "0"))
	r.TaskCreated(task(1, "15"))

	if got := r.Scheduled()[models.TaskName(1)]; got != "15 9 * * *" {
		t.Errorf("spec = %q, want updated spec", got)
	}
	if n := len(r.c.Entries()); n != 1 {
		t.Errorf("expected 1 cron entry, got %d", n)
	}
}

func TestDisabledTaskIsNotInstalled(t *testing.T) {
	r := NewRuntime(&fakeLister{}, make(chan models.FiringJob, 1), nil, zap.NewNop())

	tk := task(1, "0")
	r.TaskCreated(tk)
	tk.Enabled = false
	r.TaskCreated(tk)

	if len(r.Scheduled()) != 0 {
		t.Errorf("disabled task must not keep a trigger")
	}
}

func TestInvalidSpecIsSkipped(t *testing.T) {
	r := NewRuntime(&fakeLister{}, make(chan models.FiringJob, 1), nil, zap.NewNop())

	r.TaskCreated(task(1, "61"))

	if len(r.Scheduled()) != 0 {
		t.Errorf("invalid spec must not be installed")
	}
}

func TestReconcile(t *testing.T) {
	lister := &fakeLister{tasks: []models.PeriodicTask{task(1, "0"), task(2, "5")}}
	r := NewRuntime(lister, make(chan models.FiringJob, 1), nil, zap.NewNop())

	r.TaskCreated(task(3, "10"))

	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := r.Scheduled()
	if len(got) != 2 {
		t.Fatalf("expected 2 triggers, got %v", got)
	}
	if _, ok := got[models.TaskName(3)]; ok {
		t.Errorf("trigger without a stored task should be removed")
	}

	lister.tasks = lister.tasks[:1]
	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(r.Scheduled()) != 1 {
		t.Errorf("expected 1 trigger after second reconcile, got %v", r.Scheduled())
	}
}

func TestReconcileErrorKeepsTriggers(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	r := NewRuntime(lister, make(chan models.FiringJob, 1), nil, zap.NewNop())
	r.TaskCreated(task(1, "0"))

	if err := r.Reconcile(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(r.Scheduled()) != 1 {
		t.Errorf("triggers should be kept when the store is unavailable")
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	jobs := make(chan models.FiringJob, 1)
	r := NewRuntime(&fakeLister{}, jobs, nil, zap.NewNop())

	r.enqueue(models.TaskName(1), 1)
	r.enqueue(models.TaskName(2), 2)

	if len(jobs) != 1 {
		t.Fatalf("expected 1 queued job, got %d", len(jobs))
	}
	job := <-jobs
	if job.NewsletterID != 1 || job.TaskName != models.TaskName(1) {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestReconcileDiscardsSnapshotRacingTaskChanges(t *testing.T) {
	lister := &fakeLister{tasks: []models.PeriodicTask{task(1, "0")}}
	r := NewRuntime(lister, make(chan models.FiringJob, 1), nil, zap.NewNop())
	r.TaskCreated(task(1, "0"))

	// newsletter 2 is created and newsletter 1 deleted while the store is read
	lister.during = func() {
		r.TaskCreated(task(2, "30"))
		r.TaskDeleted(models.TaskName(1))
	}

	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	got := r.Scheduled()
	if _, ok := got[models.TaskName(2)]; !ok {
		t.Errorf("trigger created during reconcile was pruned: %v", got)
	}
	if _, ok := got[models.TaskName(1)]; ok {
		t.Errorf("trigger deleted during reconcile was re-installed: %v", got)
	}

	// a quiet reconcile applies the store again
	lister.during = nil
	lister.tasks = []models.PeriodicTask{task(2, "30"), task(3, "45")}
	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(r.Scheduled()) != 2 {
		t.Errorf("expected 2 triggers after quiet reconcile, got %v", r.Scheduled())
	}
}
