package testutil

import (
	"fmt"
	"time"

	"github.com/nhle/mailhub/internal/model"
)

// Message returns a minimal message with the given ID.
func Message(id string) model.Message {
	return model.Message{
		ID:        id,
		AccountID: "acct-1",
		Subject:   fmt.Sprintf("subject %s", id),
		From:      model.EmailAddress{Name: "Sender", Address: "sender@example.com"},
		To:        []model.EmailAddress{{Address: "me@example.com"}},
		Date:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Body:      "hello",
	}
}

// Messages returns messages with the given IDs in order.
func Messages(ids ...string) []model.Message {
	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, Message(id))
	}
	return out
}

// IDs returns the IDs of msgs in order.
func IDs(msgs []model.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

// Account returns an IMAP account with the given ID.
func Account(id string) model.Account {
	return model.Account{
		ID:       id,
		Name:     "Work " + id,
		Email:    id + "@example.com",
		Protocol: model.ProtocolIMAP,
		Provider: model.MailProviderOther,
		Config: model.AccountConfig{
			Host:     "imap.example.com",
			Port:     993,
			Password: "secret",
		},
	}
}
