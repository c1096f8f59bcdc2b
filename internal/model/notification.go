package model

import "time"

// Notification is a user-facing alert raised for a newly synced message
// whose classification asks for attention. It is an event, not a stored
// field of the message.
type Notification struct {
	// MessageID links this notification to the originating message.
	MessageID string `json:"message_id"`

	// AccountID identifies the account the message was fetched for.
	AccountID string `json:"account_id"`

	Subject  string   `json:"subject"`
	From     string   `json:"from"`
	Category Category `json:"category"`

	// VerificationCode is copied from the classification so that a
	// notification can show it without a store lookup.
	VerificationCode string `json:"verification_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
