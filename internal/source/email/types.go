package email

import (
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mailhub/internal/model"
)

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID string
	Subject   string
	From      model.EmailAddress
	To        []model.EmailAddress
	Cc        []model.EmailAddress
	Bcc       []model.EmailAddress
	Date      time.Time
	Seen      bool
	Flagged   bool
	UID       uint32
}

// ParsedMessage holds the full parsed content of an email message.
type ParsedMessage struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}

func toAddress(a imap.Address) model.EmailAddress {
	return model.EmailAddress{Name: a.Name, Address: a.Addr()}
}

func toAddresses(in []imap.Address) []model.EmailAddress {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.EmailAddress, 0, len(in))
	for _, a := range in {
		out = append(out, toAddress(a))
	}
	return out
}
