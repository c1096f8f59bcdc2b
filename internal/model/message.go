package model

import "time"

// EmailAddress is a mailbox with an optional display name.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// String renders the address in "Name <addr>" form when a name is set.
func (e EmailAddress) String() string {
	if e.Name == "" {
		return e.Address
	}
	return e.Name + " <" + e.Address + ">"
}

// Message is a single email held in the store. It is created by a fetch,
// enriched with a classification during sync, and mutated by read, star
// and label operations.
type Message struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`

	Subject string         `json:"subject"`
	From    EmailAddress   `json:"from"`
	To      []EmailAddress `json:"to"`
	Cc      []EmailAddress `json:"cc,omitempty"`
	Bcc     []EmailAddress `json:"bcc,omitempty"`
	Date    time.Time      `json:"date"`

	Body     string `json:"body"`
	HTMLBody string `json:"html_body,omitempty"`

	IsRead    bool     `json:"is_read"`
	IsStarred bool     `json:"is_starred"`
	Labels    []string `json:"labels,omitempty"`

	Classification *Classification `json:"ai_classification,omitempty"`
}

// Category returns the message category, or CategoryRoutine when the
// message has not been classified.
func (m Message) Category() Category {
	if m.Classification == nil {
		return CategoryRoutine
	}
	return m.Classification.Category
}
