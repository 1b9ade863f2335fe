package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"

	"Mailcast/internal/models"
)

type fakeScheduleStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[models.Descriptor]models.Schedule
	inserts int
	err     error
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{rows: map[models.Descriptor]models.Schedule{}}
}

func (f *fakeScheduleStore) GetOrCreateSchedule(ctx context.Context, d models.Descriptor) (models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Schedule{}, f.err
	}
	if s, ok := f.rows[d]; ok {
		return s, nil
	}
	f.nextID++
	f.inserts++
	s := models.Schedule{ID: f.nextID, Descriptor: d}
	f.rows[d] = s
	return s, nil
}

func TestRegistry_ResolveIsIdempotent(t *testing.T) {
	store := newFakeScheduleStore()
	reg := NewRegistry(store)
	d := models.Descriptor{Minute: "0", Hour: "10", DayOfWeek: "*", DayOfMonth: "*", MonthOfYear: "*"}

	first, err := reg.Resolve(context.Background(), d)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := reg.Resolve(context.Background(), d)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("handles differ: %d vs %d", first.ID, second.ID)
	}
	if store.inserts != 1 {
		t.Errorf("inserts = %d, want 1", store.inserts)
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	store := newFakeScheduleStore()
	reg := NewRegistry(store)
	d := models.Descriptor{Minute: "15", Hour: "7", DayOfWeek: "1", DayOfMonth: "*", MonthOfYear: "*"}

	var wg sync.WaitGroup
	ids := make([]int64, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := reg.Resolve(context.Background(), d)
			if err != nil {
				t.Errorf("Resolve: %v", err)
				return
			}
			ids[i] = s.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("got differing ids %v", ids)
		}
	}
	if len(store.rows) != 1 {
		t.Errorf("rows = %d, want 1", len(store.rows))
	}
}

func TestRegistry_DistinctDescriptors(t *testing.T) {
	store := newFakeScheduleStore()
	reg := NewRegistry(store)

	a, _ := reg.Resolve(context.Background(), models.Descriptor{Minute: "0", Hour: "10", DayOfWeek: "*", DayOfMonth: "*", MonthOfYear: "*"})
	b, _ := reg.Resolve(context.Background(), models.Descriptor{Minute: "0", Hour: "10", DayOfWeek: "*", DayOfMonth: "5", MonthOfYear: "*"})
	if a.ID == b.ID {
		t.Errorf("distinct descriptors share handle %d", a.ID)
	}
}

func TestRegistry_StoreErrorPropagates(t *testing.T) {
	store := newFakeScheduleStore()
	store.err = errors.New("unique violation")
	reg := NewRegistry(store)

	_, err := reg.Resolve(context.Background(), models.Descriptor{Minute: "0", Hour: "1", DayOfWeek: "*", DayOfMonth: "*", MonthOfYear: "*"})
	if !errors.Is(err, store.err) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestRegistry_RejectsInvalidDescriptor(t *testing.T) {
	store := newFakeScheduleStore()
	reg := NewRegistry(store)

	_, err := reg.Resolve(context.Background(), models.Descriptor{Minute: "61", Hour: "1", DayOfWeek: "*", DayOfMonth: "*", MonthOfYear: "*"})
	if err == nil {
		t.Fatal("expected error for minute 61")
	}
	if store.inserts != 0 {
		t.Errorf("inserts = %d, want 0", store.inserts)
	}
}
