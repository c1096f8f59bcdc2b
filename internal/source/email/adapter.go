package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/source"
)

const (
	defaultFetchLimit = 100
	defaultSinceDays  = 7
)

// messageNamespace scopes the name-based UUIDs given to fetched messages.
var messageNamespace = uuid.MustParse("8f0d3c3e-51a4-4c35-9a87-6b0e1f2d7c90")

// Options configures an Adapter.
type Options struct {
	// FetchLimit caps the messages fetched per account.
	FetchLimit int

	// SinceDays limits the search window. Zero uses the default.
	SinceDays int

	// Tokens supplies access tokens for OAuth2 accounts.
	Tokens TokenSource

	Logger *zap.Logger
}

// Adapter implements source.Fetcher and source.Sender for IMAP/SMTP
// accounts, including OAuth2 accounts using XOAUTH2.
type Adapter struct {
	limit     int
	sinceDays int
	tokens    TokenSource
	logger    *zap.Logger
	now       func() time.Time
}

var (
	_ source.Fetcher = (*Adapter)(nil)
	_ source.Sender  = (*Adapter)(nil)
)

// NewAdapter creates a new email adapter.
func NewAdapter(opts Options) *Adapter {
	a := &Adapter{
		limit:     opts.FetchLimit,
		sinceDays: opts.SinceDays,
		tokens:    opts.Tokens,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if a.limit <= 0 {
		a.limit = defaultFetchLimit
	}
	if a.sinceDays <= 0 {
		a.sinceDays = defaultSinceDays
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Fetch retrieves recent inbox messages for account and maps them to
// model.Message values with stable IDs.
func (a *Adapter) Fetch(ctx context.Context, account model.Account) ([]model.Message, error) {
	if account.Protocol != model.ProtocolIMAP && account.Protocol != model.ProtocolOAuth2 {
		return nil, fmt.Errorf("fetching account %s (%s): %w",
			account.ID, account.Protocol, source.ErrUnsupportedProtocol)
	}

	ep, err := imapEndpoint(account)
	if err != nil {
		return nil, err
	}
	creds, err := a.credentials(ctx, account)
	if err != nil {
		return nil, err
	}

	since := a.now().AddDate(0, 0, -a.sinceDays)
	parsed, err := NewIMAPClient(account.ID, ep, creds).FetchMessages(ctx, since, a.limit)
	if err != nil {
		return nil, fmt.Errorf("fetching account %s: %w", account.ID, err)
	}

	msgs := make([]model.Message, 0, len(parsed))
	for _, pm := range parsed {
		msgs = append(msgs, toMessage(account.ID, pm))
	}

	a.logger.Debug("fetched messages",
		zap.String("account_id", account.ID),
		zap.String("host", ep.host),
		zap.Int("count", len(msgs)),
	)
	return msgs, nil
}

// Send delivers a plain-text message from account over SMTP.
func (a *Adapter) Send(
	ctx context.Context,
	account model.Account,
	to, subject, body string,
) error {
	ep, err := smtpEndpoint(account)
	if err != nil {
		return err
	}
	creds, err := a.credentials(ctx, account)
	if err != nil {
		return err
	}

	from := model.EmailAddress{Name: account.DisplayName, Address: account.Email}
	msg, err := composeMessage(from, to, subject, body, a.now())
	if err != nil {
		return err
	}

	if err := sendSMTP(ctx, account.ID, ep, creds, msg); err != nil {
		return fmt.Errorf("sending from account %s: %w", account.ID, err)
	}

	a.logger.Info("message sent",
		zap.String("account_id", account.ID),
		zap.Int("recipients", len(msg.recipients)),
	)
	return nil
}

// credentials resolves login material. OAuth2 accounts get a fresh
// access token; others use the stored password.
func (a *Adapter) credentials(ctx context.Context, account model.Account) (credentials, error) {
	creds := credentials{username: account.LoginName()}

	if account.Protocol != model.ProtocolOAuth2 {
		creds.password = account.Config.Password
		return creds, nil
	}

	if a.tokens == nil {
		if account.Config.OAuthToken == "" {
			return credentials{}, &source.AuthError{
				AccountID: account.ID,
				Message:   "no OAuth2 token available",
			}
		}
		creds.accessToken = account.Config.OAuthToken
		return creds, nil
	}

	tok, err := a.tokens.AccessToken(ctx, account)
	if err != nil {
		return credentials{}, err
	}
	creds.accessToken = tok
	return creds, nil
}

// toMessage converts a parsed IMAP message into a model.Message.
func toMessage(accountID string, pm ParsedMessage) model.Message {
	env := pm.Envelope

	body := pm.TextBody
	if body == "" && pm.HTMLBody != "" {
		body = stripHTML(pm.HTMLBody)
	}

	return model.Message{
		ID:        messageID(accountID, env),
		AccountID: accountID,
		Subject:   env.Subject,
		From:      env.From,
		To:        env.To,
		Cc:        env.Cc,
		Bcc:       env.Bcc,
		Date:      env.Date,
		Body:      body,
		HTMLBody:  pm.HTMLBody,
		IsRead:    env.Seen,
		IsStarred: env.Flagged,
	}
}

// messageID derives a stable ID from the account and the Message-ID
// header, falling back to the UID for messages without one.
func messageID(accountID string, env Envelope) string {
	key := env.MessageID
	if key == "" {
		key = fmt.Sprintf("uid:%d", env.UID)
	}
	return uuid.NewSHA1(messageNamespace, []byte(accountID+"\x00"+key)).String()
}
