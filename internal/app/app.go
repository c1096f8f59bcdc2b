// Package app is the command surface of mailhub: account, message and
// settings management plus on-demand sync and send.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/credential"
	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/source"
	"github.com/nhle/mailhub/internal/store"
	appsync "github.com/nhle/mailhub/internal/sync"
)

// ErrAccountNotFound is returned by SendEmail for an unknown account.
var ErrAccountNotFound = errors.New("account not found")

// Deps holds the components an App is built from.
type Deps struct {
	Store    store.Store
	Syncer   *appsync.Syncer
	Sender   source.Sender
	Resolver *credential.Resolver
	Logger   *zap.Logger
}

// App owns the store for the lifetime of the process and exposes the
// operations a client can invoke.
type App struct {
	store    store.Store
	syncer   *appsync.Syncer
	sender   source.Sender
	resolver *credential.Resolver
	logger   *zap.Logger
}

// New creates an App.
func New(d Deps) *App {
	a := &App{
		store:    d.Store,
		syncer:   d.Syncer,
		sender:   d.Sender,
		resolver: d.Resolver,
		logger:   d.Logger,
	}
	if a.resolver == nil {
		a.resolver = credential.NewResolver(nil, d.Logger)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// === Accounts ===

// GetAccounts returns all configured accounts.
func (a *App) GetAccounts(ctx context.Context) ([]model.Account, error) {
	return a.store.GetAccounts(ctx)
}

// AddAccount stores a new account, assigning an ID when it has none, and
// returns the stored account.
func (a *App) AddAccount(ctx context.Context, account model.Account) (model.Account, error) {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.Protocol == "" {
		account.Protocol = model.ProtocolIMAP
	}
	if err := a.store.AddAccount(ctx, account); err != nil {
		return model.Account{}, fmt.Errorf("adding account %s: %w", account.ID, err)
	}
	a.logger.Info("account added", zap.String("account_id", account.ID))
	return account, nil
}

// UpdateAccount replaces an existing account. Unknown IDs are ignored.
func (a *App) UpdateAccount(ctx context.Context, account model.Account) error {
	if err := a.store.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("updating account %s: %w", account.ID, err)
	}
	return nil
}

// DeleteAccount removes an account. Unknown IDs are ignored.
func (a *App) DeleteAccount(ctx context.Context, id string) error {
	if err := a.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return nil
}

// === Messages ===

// GetEmails returns stored messages, newest first. A non-empty accountID
// restricts the result to that account.
func (a *App) GetEmails(ctx context.Context, accountID string) ([]model.Message, error) {
	msgs, err := a.store.GetMessages(ctx)
	if err != nil {
		return nil, err
	}
	if accountID == "" {
		return msgs, nil
	}

	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarkRead sets the read flag of a message.
func (a *App) MarkRead(ctx context.Context, id string, read bool) error {
	return a.store.ModifyMessage(ctx, id, func(m *model.Message) {
		m.IsRead = read
	})
}

// SetStarred sets the starred flag of a message.
func (a *App) SetStarred(ctx context.Context, id string, starred bool) error {
	return a.store.ModifyMessage(ctx, id, func(m *model.Message) {
		m.IsStarred = starred
	})
}

// SetLabels replaces the labels of a message.
func (a *App) SetLabels(ctx context.Context, id string, labels []string) error {
	return a.store.ModifyMessage(ctx, id, func(m *model.Message) {
		m.Labels = append([]string(nil), labels...)
	})
}

// DeleteEmail removes a stored message.
func (a *App) DeleteEmail(ctx context.Context, id string) error {
	return a.store.DeleteMessage(ctx, id)
}

// === Sync and send ===

// SyncInput loads the accounts and settings for a sync pass, with blank
// secrets filled from the keyring.
func (a *App) SyncInput(ctx context.Context) ([]model.Account, model.Settings, error) {
	accounts, err := a.store.GetAccounts(ctx)
	if err != nil {
		return nil, model.Settings{}, fmt.Errorf("loading accounts: %w", err)
	}
	settings, err := a.store.GetSettings(ctx)
	if err != nil {
		return nil, model.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	return a.resolver.Accounts(accounts), a.resolver.Settings(settings), nil
}

// SyncEmails runs one sync pass over all accounts and returns its report.
func (a *App) SyncEmails(ctx context.Context) (*appsync.Report, error) {
	accounts, settings, err := a.SyncInput(ctx)
	if err != nil {
		return nil, err
	}
	return a.syncer.Sync(ctx, accounts, settings)
}

// SendEmail sends a plain-text message from the given account.
func (a *App) SendEmail(ctx context.Context, accountID, to, subject, body string) error {
	account, err := a.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("sending from %s: %w", accountID, ErrAccountNotFound)
	}
	if err != nil {
		return err
	}

	return a.sender.Send(ctx, a.resolver.Account(*account), to, subject, body)
}

// === Settings ===

// GetSettings returns the stored settings or the defaults.
func (a *App) GetSettings(ctx context.Context) (model.Settings, error) {
	return a.store.GetSettings(ctx)
}

// UpdateSettings replaces the stored settings.
func (a *App) UpdateSettings(ctx context.Context, settings model.Settings) error {
	if err := a.store.UpdateSettings(ctx, settings); err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}
	return nil
}
