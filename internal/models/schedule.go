package models

import (
	"fmt"
	"strconv"
	"time"
)

// Wildcard matches every value of a descriptor field.
const Wildcard = "*"

// DispatchAction is the only action a periodic task can be bound to.
const DispatchAction = "newsletter.dispatch"

// Descriptor is a normalized recurrence rule. Each field is either a number
// or Wildcard.
type Descriptor struct {
	Minute      string `json:"minute"`
	Hour        string `json:"hour"`
	DayOfWeek   string `json:"day_of_week"`
	DayOfMonth  string `json:"day_of_month"`
	MonthOfYear string `json:"month_of_year"`
}

// Spec renders the descriptor as a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func (d Descriptor) Spec() string {
	return fmt.Sprintf("%s %s %s %s %s", d.Minute, d.Hour, d.DayOfMonth, d.MonthOfYear, d.DayOfWeek)
}

// Schedule is a stored Descriptor shared by every task with the same rule.
type Schedule struct {
	ID         int64      `json:"id"`
	Descriptor Descriptor `json:"descriptor"`
}

// PeriodicTask binds a Schedule to the dispatch action of one newsletter.
type PeriodicTask struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	ScheduleID   int64      `json:"schedule_id"`
	Descriptor   Descriptor `json:"descriptor"`
	Action       string     `json:"action"`
	NewsletterID int64      `json:"newsletter_id"`
	Enabled      bool       `json:"enabled"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TaskName derives the unique task name from the newsletter's stable ID.
func TaskName(newsletterID int64) string {
	return "newsletter-dispatch:" + strconv.FormatInt(newsletterID, 10)
}
