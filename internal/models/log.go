package models

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ResponseDelivered is recorded for successful sends.
const ResponseDelivered = "delivered"

// NewsletterLog is one append-only audit row per send attempt. References
// become nil when the referenced row is removed.
type NewsletterLog struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Outcome      Outcome   `json:"outcome"`
	Response     string    `json:"response"`
	ClientID     *int64    `json:"client_id,omitempty"`
	MessageID    *int64    `json:"message_id,omitempty"`
	NewsletterID *int64    `json:"newsletter_id,omitempty"`
}
