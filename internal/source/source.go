package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/mailhub/internal/model"
)

// ErrUnsupportedProtocol is returned for accounts whose protocol has no
// transport implementation.
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// AuthError indicates that authentication has failed or expired for an
// account. It is returned by transports when the server rejects the
// credentials.
type AuthError struct {
	AccountID string
	Message   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (account %s): %s", e.AccountID, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Fetcher retrieves the current batch of inbox messages for an account.
// Returned messages carry stable IDs and no classification.
type Fetcher interface {
	Fetch(ctx context.Context, account model.Account) ([]model.Message, error)
}

// Sender delivers an outgoing plain-text message from an account.
type Sender interface {
	// Send delivers body to the comma-separated recipient list to.
	Send(ctx context.Context, account model.Account, to, subject, body string) error
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, account model.Account) ([]model.Message, error)

// Fetch calls f(ctx, account).
func (f FetcherFunc) Fetch(ctx context.Context, account model.Account) ([]model.Message, error) {
	return f(ctx, account)
}
