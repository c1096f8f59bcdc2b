package store

import (
	"context"
	"errors"

	"github.com/nhle/mailhub/internal/model"
)

// ErrNotFound is returned by single-item lookups for unknown IDs.
var ErrNotFound = errors.New("not found")

// Collection names as persisted in the collections table.
const (
	collectionAccounts = "accounts"
	collectionMessages = "emails"
	collectionSettings = "settings"
)

// Store defines the persistence interface for accounts, messages and
// settings. Updates and deletes of unknown IDs are silent no-ops.
type Store interface {
	// === Accounts ===

	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	AddAccount(ctx context.Context, account model.Account) error
	UpdateAccount(ctx context.Context, account model.Account) error
	DeleteAccount(ctx context.Context, id string) error

	// === Messages ===

	// GetMessages returns all messages, most recently inserted first.
	GetMessages(ctx context.Context) ([]model.Message, error)
	GetMessage(ctx context.Context, id string) (*model.Message, error)

	// AddMessage inserts msg at the head unless its ID is already
	// present. It reports whether the message was inserted.
	AddMessage(ctx context.Context, msg model.Message) (bool, error)

	// AddMessages inserts each message whose ID is not yet present at
	// the head, in batch order, and returns the number inserted.
	AddMessages(ctx context.Context, msgs []model.Message) (int, error)

	UpdateMessage(ctx context.Context, msg model.Message) error
	ModifyMessage(ctx context.Context, id string, fn func(*model.Message)) error
	DeleteMessage(ctx context.Context, id string) error

	// === Settings ===

	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, settings model.Settings) error
}
