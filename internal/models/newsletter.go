package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type NewsletterStatus string

const (
	StatusCreated   NewsletterStatus = "created"
	StatusScheduled NewsletterStatus = "scheduled"
	StatusFinished  NewsletterStatus = "finished"
)

// TimeOfDay is a wall-clock time without a date, used for the daily fire time.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM[:SS]", s)
	}

	limits := []int{23, 59, 59}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		vals[i] = v
	}

	return TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Newsletter is a recurring delivery of Messages to Clients.
//
// FinishDate ("2006-01-02") and FinishTime ("15:04:05") are kept in their
// stored text form and combined in UTC when checking expiry.
type Newsletter struct {
	ID         int64            `json:"id"`
	OwnerID    int64            `json:"owner_id"`
	FireAt     TimeOfDay        `json:"fire_at"`
	Frequency  Frequency        `json:"frequency"`
	Status     NewsletterStatus `json:"status"`
	ClientIDs  []int64          `json:"client_ids"`
	MessageIDs []int64          `json:"message_ids"`
	IsActive   bool             `json:"is_active"`
	FinishDate string           `json:"finish_date"`
	FinishTime string           `json:"finish_time"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Newsletter) String() string {
	return fmt.Sprintf("Newsletter #%d", n.ID)
}

// DetailPath is the location of the newsletter's own detail page.
func (n *Newsletter) DetailPath() string {
	return fmt.Sprintf("/newsletters/%d", n.ID)
}
