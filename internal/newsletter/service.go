// Package newsletter sequences the create, edit and deactivate flows over
// the store and the task manager.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Mailcast/internal/delivery"
	"Mailcast/internal/models"
)

type Store interface {
	CreateNewsletter(ctx context.Context, nl *models.Newsletter) error
	UpdateNewsletter(ctx context.Context, nl *models.Newsletter) error
	GetNewsletter(ctx context.Context, id int64) (*models.Newsletter, error)
	ListNewsletters(ctx context.Context, ownerID *int64) ([]models.Newsletter, error)
	UpdateNewsletterStatus(ctx context.Context, id int64, status models.NewsletterStatus) error
	SetNewsletterActive(ctx context.Context, id int64, active bool) error
	ListLogs(ctx context.Context, newsletterID int64) ([]models.NewsletterLog, error)
	ListLogsByOwner(ctx context.Context, ownerID *int64) ([]models.NewsletterLog, error)
	GetLog(ctx context.Context, id int64) (*models.NewsletterLog, error)
	InsertClients(ctx context.Context, clients []models.Client) error
	CreateMessage(ctx context.Context, msg *models.Message) error
}

type TaskManager interface {
	Create(ctx context.Context, nl *models.Newsletter) (*models.PeriodicTask, error)
	Delete(ctx context.Context, nl *models.Newsletter) error
	Replace(ctx context.Context, nl *models.Newsletter) (*models.PeriodicTask, error)
}

type Service struct {
	store Store
	tasks TaskManager
	clock delivery.Clock
	log   *zap.Logger
}

func NewService(store Store, tasks TaskManager, clock delivery.Clock, log *zap.Logger) *Service {
	if clock == nil {
		clock = delivery.SystemClock{}
	}
	return &Service{store: store, tasks: tasks, clock: clock, log: log}
}

func (s *Service) validate(nl *models.Newsletter) error {
	if !nl.Frequency.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidFrequency, nl.Frequency)
	}

	end, err := delivery.FinishInstant(nl)
	if err != nil {
		return err
	}
	if !end.After(s.clock.Now().UTC()) {
		return fmt.Errorf("%w: %s", models.ErrFinishInPast, end.Format(time.RFC3339))
	}

	return nil
}

// Create stores a new newsletter, binds its periodic task and promotes it
// to scheduled.
func (s *Service) Create(ctx context.Context, nl *models.Newsletter) error {
	if err := s.validate(nl); err != nil {
		return err
	}

	nl.Status = models.StatusCreated
	nl.IsActive = true

	if err := s.store.CreateNewsletter(ctx, nl); err != nil {
		return fmt.Errorf("create newsletter: %w", err)
	}

	if _, err := s.tasks.Create(ctx, nl); err != nil {
		return err
	}

	if err := s.store.UpdateNewsletterStatus(ctx, nl.ID, models.StatusScheduled); err != nil {
		return fmt.Errorf("schedule newsletter %d: %w", nl.ID, err)
	}
	nl.Status = models.StatusScheduled

	s.log.Info("newsletter created",
		zap.Int64("newsletter_id", nl.ID),
		zap.Int64("owner_id", nl.OwnerID),
		zap.String("frequency", string(nl.Frequency)),
	)

	return nil
}

// Update saves the edited settings and re-arms the newsletter with a fresh
// task. The newsletter ends up active and scheduled.
func (s *Service) Update(ctx context.Context, nl *models.Newsletter) error {
	if err := s.validate(nl); err != nil {
		return err
	}

	if err := s.store.UpdateNewsletter(ctx, nl); err != nil {
		return fmt.Errorf("update newsletter %d: %w", nl.ID, err)
	}
	nl.IsActive = true

	if _, err := s.tasks.Replace(ctx, nl); err != nil {
		return err
	}

	s.log.Info("newsletter updated", zap.Int64("newsletter_id", nl.ID))

	return nil
}

// Deactivate drops the task and flips the soft inactive flag. The row and
// its logs are kept.
func (s *Service) Deactivate(ctx context.Context, nl *models.Newsletter) error {
	if err := s.tasks.Delete(ctx, nl); err != nil {
		return err
	}

	if err := s.store.SetNewsletterActive(ctx, nl.ID, false); err != nil {
		return fmt.Errorf("deactivate newsletter %d: %w", nl.ID, err)
	}
	nl.IsActive = false

	s.log.Info("newsletter deactivated", zap.Int64("newsletter_id", nl.ID))

	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Newsletter, error) {
	return s.store.GetNewsletter(ctx, id)
}

// List returns the viewer's own newsletters, or all of them for staff.
func (s *Service) List(ctx context.Context, viewer models.Viewer) ([]models.Newsletter, error) {
	if viewer.IsStaff {
		return s.store.ListNewsletters(ctx, nil)
	}
	return s.store.ListNewsletters(ctx, &viewer.UserID)
}

func (s *Service) Logs(ctx context.Context, newsletterID int64) ([]models.NewsletterLog, error) {
	return s.store.ListLogs(ctx, newsletterID)
}

// AllLogs returns the logs of the viewer's newsletters, or every log for
// staff.
func (s *Service) AllLogs(ctx context.Context, viewer models.Viewer) ([]models.NewsletterLog, error) {
	if viewer.IsStaff {
		return s.store.ListLogsByOwner(ctx, nil)
	}
	return s.store.ListLogsByOwner(ctx, &viewer.UserID)
}

// Log returns one log row together with its newsletter, which is nil when
// the newsletter no longer exists.
func (s *Service) Log(ctx context.Context, id int64) (*models.NewsletterLog, *models.Newsletter, error) {
	entry, err := s.store.GetLog(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if entry.NewsletterID == nil {
		return entry, nil, nil
	}

	nl, err := s.store.GetNewsletter(ctx, *entry.NewsletterID)
	if errors.Is(err, models.ErrNotFound) {
		return entry, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return entry, nl, nil
}

func (s *Service) ImportClients(ctx context.Context, clients []models.Client) error {
	if err := s.store.InsertClients(ctx, clients); err != nil {
		return fmt.Errorf("import clients: %w", err)
	}
	s.log.Info("clients imported", zap.Int("count", len(clients)))
	return nil
}

func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}
