package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"Mailcast/internal/models"
)

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		want     error
		unmapped bool
	}{
		{"nil", nil, nil, false},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound, false},
		{"wrapped no rows", errors.Join(errors.New("scan"), pgx.ErrNoRows), models.ErrNotFound, false},
		{"duplicate task name", &pgconn.PgError{Code: "23505", TableName: "periodic_tasks", Detail: "Key (name)=(newsletter-dispatch:1) already exists."}, models.ErrTaskExists, false},
		{"foreign key", &pgconn.PgError{Code: "23503", TableName: "newsletter_logs"}, models.ErrInvalidReference, false},
		{"duplicate on other table", &pgconn.PgError{Code: "23505", TableName: "clients"}, nil, true},
		{"other pg error", &pgconn.PgError{Code: "40001"}, nil, true},
		{"non pg error", other, other, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)

			if tt.unmapped {
				if got != tt.err {
					t.Errorf("expected error passed through unchanged, got %v", got)
				}
				for _, sentinel := range []error{models.ErrTaskExists, models.ErrInvalidReference, models.ErrNotFound} {
					if errors.Is(got, sentinel) {
						t.Errorf("unexpectedly mapped to %v", sentinel)
					}
				}
				return
			}

			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// fakeQuerier answers each QueryRow with the next scripted row.
type fakeQuerier struct {
	rows    []scanFunc
	queries []string
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func idRow(id int64) scanFunc {
	return func(dest ...any) error {
		*dest[0].(*int64) = id
		return nil
	}
}

func errRow(err error) scanFunc {
	return func(dest ...any) error { return err }
}

var dailyTen = models.Descriptor{Minute: "0", Hour: "10", DayOfWeek: "*", DayOfMonth: "*", MonthOfYear: "*"}

func TestGetOrCreateScheduleInserts(t *testing.T) {
	q := &fakeQuerier{rows: []scanFunc{idRow(4)}}

	s, err := getOrCreateSchedule(context.Background(), q, dailyTen)
	if err != nil {
		t.Fatalf("getOrCreateSchedule: %v", err)
	}
	if s.ID != 4 || s.Descriptor != dailyTen {
		t.Errorf("unexpected schedule %+v", s)
	}
	if len(q.queries) != 1 {
		t.Errorf("expected a single insert, got %d queries", len(q.queries))
	}
}

func TestGetOrCreateScheduleConflictSelectsExisting(t *testing.T) {
	q := &fakeQuerier{rows: []scanFunc{errRow(pgx.ErrNoRows), idRow(17)}}

	s, err := getOrCreateSchedule(context.Background(), q, dailyTen)
	if err != nil {
		t.Fatalf("getOrCreateSchedule: %v", err)
	}
	if s.ID != 17 {
		t.Errorf("ID = %d, want existing row 17", s.ID)
	}
	if len(q.queries) != 2 || !strings.Contains(q.queries[1], "SELECT id FROM schedules") {
		t.Errorf("expected fallback select, got %v", q.queries)
	}
}

func TestGetOrCreateScheduleInsertError(t *testing.T) {
	boom := errors.New("connection reset")
	q := &fakeQuerier{rows: []scanFunc{errRow(boom)}}

	_, err := getOrCreateSchedule(context.Background(), q, dailyTen)
	if !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if len(q.queries) != 1 {
		t.Errorf("select must not run after a failed insert")
	}
}

func TestGetOrCreateScheduleVanishedRow(t *testing.T) {
	q := &fakeQuerier{rows: []scanFunc{errRow(pgx.ErrNoRows), errRow(pgx.ErrNoRows)}}

	_, err := getOrCreateSchedule(context.Background(), q, dailyTen)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
