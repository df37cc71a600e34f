package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification types supported by the dispatch pipeline.
const (
	TypeEmail = "email"
	TypeSMS   = "sms"
)

// Notification statuses. A notification starts as pending and moves
// exactly once to sent or failed after the dispatch attempt.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification represents a notification entity in the system.
type Notification struct {
	ID         uuid.UUID `json:"notificationId"`     // unique identifier for the notification
	Type       string    `json:"type"`               // delivery method, "email" or "sms"
	Recipient  string    `json:"recipient"`          // email address or E.164 phone number, depending on Type
	Subject    string    `json:"subject,omitempty"`  // required for email, unused for sms
	Message    string    `json:"message"`            // content of the notification
	ExternalID string    `json:"externalId"`         // opaque reference to the caller's originating entity
	Status     string    `json:"status"`             // current state: "pending", "sent" or "failed"
	Deleted    bool      `json:"deleted,omitempty"`  // soft-delete flag, hidden from default reads
	SentAt     time.Time `json:"sentAt"`             // timestamp of the dispatch attempt
	CreatedAt  time.Time `json:"createdAt"`          // timestamp when the record was created
	UpdatedAt  time.Time `json:"updatedAt"`          // timestamp when the record was last updated
}
