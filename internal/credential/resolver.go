package credential

import (
	"errors"

	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/model"
)

// Getter looks up a secret by key.
type Getter interface {
	Get(key string) (string, error)
}

// AccountPasswordKey is the keyring key of an account password.
func AccountPasswordKey(accountID string) string {
	return "account-" + accountID + "-password"
}

// AccountRefreshKey is the keyring key of an account OAuth2 refresh token.
func AccountRefreshKey(accountID string) string {
	return "account-" + accountID + "-refresh"
}

// AIKey is the keyring key of a classification provider API key.
func AIKey(p model.AIProvider) string {
	return "ai-" + string(p)
}

// Resolver fills blank secrets from a keyring so that they can be kept
// out of the persisted collections. Secrets already present win.
type Resolver struct {
	ring   Getter
	logger *zap.Logger
}

// NewResolver creates a Resolver. A nil ring resolves nothing.
func NewResolver(ring Getter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{ring: ring, logger: logger}
}

// Account returns a copy of a with blank password and refresh token
// filled in.
func (r *Resolver) Account(a model.Account) model.Account {
	switch a.Protocol {
	case model.ProtocolOAuth2:
		if a.Config.RefreshToken == "" {
			a.Config.RefreshToken = r.lookup(AccountRefreshKey(a.ID))
		}
	default:
		if a.Config.Password == "" {
			a.Config.Password = r.lookup(AccountPasswordKey(a.ID))
		}
	}
	return a
}

// Accounts resolves every account in order.
func (r *Resolver) Accounts(in []model.Account) []model.Account {
	out := make([]model.Account, 0, len(in))
	for _, a := range in {
		out = append(out, r.Account(a))
	}
	return out
}

// Settings returns a copy of s with a blank classification API key
// filled in.
func (r *Resolver) Settings(s model.Settings) model.Settings {
	if s.AIConfig == nil || s.AIConfig.APIKey != "" {
		return s
	}
	cfg := *s.AIConfig
	cfg.APIKey = r.lookup(AIKey(cfg.Provider))
	s.AIConfig = &cfg
	return s
}

func (r *Resolver) lookup(key string) string {
	if r.ring == nil {
		return ""
	}
	v, err := r.ring.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("reading credential failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return v
}
