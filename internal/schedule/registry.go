package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"Mailcast/internal/models"
)

// Parser accepts exactly the 5-field expressions produced by Descriptor.Spec.
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Store interface {
	// GetOrCreateSchedule must be atomic: concurrent calls with the same
	// descriptor return the same row.
	GetOrCreateSchedule(ctx context.Context, d models.Descriptor) (models.Schedule, error)
}

// Registry resolves descriptors to shared schedule rows.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) Resolve(ctx context.Context, d models.Descriptor) (models.Schedule, error) {
	if _, err := Parser.Parse(d.Spec()); err != nil {
		return models.Schedule{}, fmt.Errorf("invalid descriptor %q: %w", d.Spec(), err)
	}

	s, err := r.store.GetOrCreateSchedule(ctx, d)
	if err != nil {
		return models.Schedule{}, fmt.Errorf("resolve schedule %q: %w", d.Spec(), err)
	}
	return s, nil
}
