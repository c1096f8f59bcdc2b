package email

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailhub/internal/source"
)

// IMAPClient wraps go-imap v2 for connecting to and querying an IMAP
// server on behalf of one account.
type IMAPClient struct {
	accountID string
	endpoint  endpoint
	creds     credentials
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(accountID string, ep endpoint, creds credentials) *IMAPClient {
	return &IMAPClient{
		accountID: accountID,
		endpoint:  ep,
		creds:     creds,
	}
}

// Connect establishes a connection to the IMAP server and authenticates,
// using XOAUTH2 when an access token is present. The caller is
// responsible for calling Logout/Close on the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.endpoint.addr()

	var client *imapclient.Client
	var err error

	if c.endpoint.startTLS {
		client, err = imapclient.DialStartTLS(addr, nil)
	} else {
		client, err = imapclient.DialTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if c.creds.accessToken != "" {
		err = client.Authenticate(c.creds.saslClient())
	} else {
		err = client.Login(c.creds.username, c.creds.password).Wait()
	}
	if err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			AccountID: c.accountID,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				c.creds.username, err,
			),
		}
	}

	return client, nil
}

// FetchMessages connects to IMAP, selects INBOX, searches for messages
// received since the given time and returns up to limit of the most
// recent ones, parsed, in ascending UID order. Bodies are fetched with
// PEEK so the \Seen flag is left alone.
func (c *IMAPClient) FetchMessages(
	ctx context.Context, since time.Time, limit int,
) ([]ParsedMessage, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	// Unblock any pending command when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{}
	if !since.IsZero() {
		criteria.Since = since
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Take the most recent UIDs.
	slices.Sort(uids)
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	var parsed []ParsedMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		pm := ParsedMessage{Envelope: envelopeFromBuffer(buf)}
		if raw := buf.FindBodySection(bodySection); raw != nil {
			pm.TextBody, pm.HTMLBody = parseMIMEBody(raw)
		}
		parsed = append(parsed, pm)
	}

	if err := fetchCmd.Close(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetching messages: %w", ctx.Err())
		}
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	slices.SortFunc(parsed, func(a, b ParsedMessage) int {
		return cmp.Compare(a.Envelope.UID, b.Envelope.UID)
	})

	return parsed, nil
}

// envelopeFromBuffer extracts an Envelope from a FetchMessageBuffer.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) Envelope {
	env := Envelope{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		env.MessageID = buf.Envelope.MessageID
		env.Subject = buf.Envelope.Subject
		env.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			env.From = toAddress(buf.Envelope.From[0])
		}
		env.To = toAddresses(buf.Envelope.To)
		env.Cc = toAddresses(buf.Envelope.Cc)
		env.Bcc = toAddresses(buf.Envelope.Bcc)
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			env.Seen = true
		case imap.FlagFlagged:
			env.Flagged = true
		}
	}

	return env
}
