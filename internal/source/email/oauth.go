package email

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/source"
)

// tokenRequestTimeout bounds a single refresh against the token endpoint.
const tokenRequestTimeout = 15 * time.Second

// TokenSource yields an OAuth2 access token for an account.
type TokenSource interface {
	AccessToken(ctx context.Context, account model.Account) (string, error)
}

// TokenRefresher exchanges stored refresh tokens for access tokens using
// the provider's OAuth2 endpoint. Token sources are cached per account so
// a token is only refreshed once it expires.
type TokenRefresher struct {
	configs map[model.MailProvider]*oauth2.Config
	client  *http.Client

	mu      sync.Mutex
	sources map[string]cachedSource
}

type cachedSource struct {
	refreshToken string
	ts           oauth2.TokenSource
}

// NewTokenRefresher creates a TokenRefresher for the configured OAuth2
// applications. Providers without a client ID are not refreshed.
func NewTokenRefresher(cfg model.OAuthConfig) *TokenRefresher {
	r := &TokenRefresher{
		configs: make(map[model.MailProvider]*oauth2.Config),
		client:  &http.Client{Timeout: tokenRequestTimeout},
		sources: make(map[string]cachedSource),
	}

	if cfg.Google.ClientID != "" {
		r.configs[model.MailProviderGmail] = &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://mail.google.com/"},
		}
	}
	if cfg.Microsoft.ClientID != "" {
		r.configs[model.MailProviderOutlook] = &oauth2.Config{
			ClientID:     cfg.Microsoft.ClientID,
			ClientSecret: cfg.Microsoft.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint("common"),
			Scopes: []string{
				"https://outlook.office.com/IMAP.AccessAsUser.All",
				"https://outlook.office.com/SMTP.Send",
				"offline_access",
			},
		}
	}

	return r
}

// AccessToken returns a valid access token for account. Without a
// refresh token (or an OAuth2 application for the provider) the stored
// access token is used as is.
func (r *TokenRefresher) AccessToken(
	ctx context.Context,
	account model.Account,
) (string, error) {
	refresh := account.Config.RefreshToken
	conf, ok := r.configs[account.Provider]

	if refresh == "" || !ok {
		if account.Config.OAuthToken == "" {
			return "", &source.AuthError{
				AccountID: account.ID,
				Message:   "no OAuth2 token available",
			}
		}
		return account.Config.OAuthToken, nil
	}

	ts := r.tokenSource(ctx, conf, account)
	tok, err := ts.Token()
	if err != nil {
		r.forget(account.ID)
		return "", &source.AuthError{
			AccountID: account.ID,
			Message:   fmt.Sprintf("refreshing OAuth2 token: %v", err),
		}
	}
	return tok.AccessToken, nil
}

func (r *TokenRefresher) tokenSource(
	ctx context.Context,
	conf *oauth2.Config,
	account model.Account,
) oauth2.TokenSource {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.sources[account.ID]; ok && c.refreshToken == account.Config.RefreshToken {
		return c.ts
	}

	// The cached source outlives ctx, so refreshes are not tied to the
	// request that first built it. The client timeout bounds them instead.
	base := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, r.client)
	ts := conf.TokenSource(base, &oauth2.Token{RefreshToken: account.Config.RefreshToken})
	r.sources[account.ID] = cachedSource{
		refreshToken: account.Config.RefreshToken,
		ts:           ts,
	}
	return ts
}

func (r *TokenRefresher) forget(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, accountID)
}
