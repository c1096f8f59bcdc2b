package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-smtp"

	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/source"
)

// outgoing is a composed message ready for delivery.
type outgoing struct {
	from       string
	recipients []string
	data       []byte
}

// composeMessage builds a plain-text RFC 5322 message with go-message.
func composeMessage(
	from model.EmailAddress,
	to, subject, body string,
	now time.Time,
) (*outgoing, error) {
	rcpts, err := mail.ParseAddressList(to)
	if err != nil {
		return nil, fmt.Errorf("parsing recipients %q: %w", to, err)
	}
	if len(rcpts) == 0 {
		return nil, errors.New("no recipients")
	}

	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Name: from.Name, Address: from.Address}})
	h.SetAddressList("To", rcpts)
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}

	out := &outgoing{from: from.Address, data: buf.Bytes()}
	for _, r := range rcpts {
		out.recipients = append(out.recipients, r.Address)
	}
	return out, nil
}

// sendSMTP delivers msg through the given endpoint, authenticating with
// creds.
func sendSMTP(
	ctx context.Context,
	accountID string,
	ep endpoint,
	creds credentials,
	msg *outgoing,
) error {
	tlsConfig := &tls.Config{ServerName: ep.host}

	var client *smtp.Client
	var err error
	if ep.startTLS {
		client, err = smtp.DialStartTLS(ep.addr(), tlsConfig)
	} else {
		client, err = smtp.DialTLS(ep.addr(), tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("connecting to SMTP %s: %w", ep.addr(), err)
	}
	defer client.Close()

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if err := client.Auth(creds.saslClient()); err != nil {
		return &source.AuthError{
			AccountID: accountID,
			Message:   fmt.Sprintf("SMTP authentication failed for %s: %v", creds.username, err),
		}
	}

	if err := client.SendMail(msg.from, msg.recipients, bytes.NewReader(msg.data)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return client.Quit()
}
