package delivery

import (
	"context"
	"errors"
	"sync"

	"Mailcast/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	messages    []models.Message
	clients     []models.Client
	logs        []models.NewsletterLog
	insertErr   error
	newsletters map[int64]*models.Newsletter
	tasks       map[string]*models.PeriodicTask
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		newsletters: map[int64]*models.Newsletter{},
		tasks:       map[string]*models.PeriodicTask{},
	}
}

func (f *fakeStore) ListNewsletterMessages(ctx context.Context, id int64) ([]models.Message, error) {
	return f.messages, nil
}

func (f *fakeStore) ListNewsletterClients(ctx context.Context, id int64) ([]models.Client, error) {
	return f.clients, nil
}

func (f *fakeStore) InsertLog(ctx context.Context, entry *models.NewsletterLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.logs = append(f.logs, *entry)
	return nil
}

func (f *fakeStore) GetNewsletter(ctx context.Context, id int64) (*models.Newsletter, error) {
	nl, ok := f.newsletters[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *nl
	return &cp, nil
}

func (f *fakeStore) GetTaskByName(ctx context.Context, name string) (*models.PeriodicTask, error) {
	t, ok := f.tasks[name]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) countOutcome(o models.Outcome) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.logs {
		if l.Outcome == o {
			n++
		}
	}
	return n
}

// fakeMailer fails for any recipient listed in failFor and panics for
// recipients listed in panicFor.
type fakeMailer struct {
	mu       sync.Mutex
	sent     []string
	failFor  map[string]bool
	panicFor map[string]bool
}

func (m *fakeMailer) Send(ctx context.Context, subject, body, from string, to []string) error {
	if m.panicFor[to[0]] {
		panic("connection reset")
	}
	if m.failFor[to[0]] {
		return errors.New("550 mailbox unavailable")
	}
	m.mu.Lock()
	m.sent = append(m.sent, subject+"->"+to[0])
	m.mu.Unlock()
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
