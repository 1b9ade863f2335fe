package models

import "time"

// FiringJob is one trigger of a periodic task, queued for the worker pool.
type FiringJob struct {
	NewsletterID int64     `json:"newsletter_id"`
	TaskName     string    `json:"task_name"`
	TriggeredAt  time.Time `json:"triggered_at"`
}
