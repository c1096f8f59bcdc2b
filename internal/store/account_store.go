package store

import (
	"context"
	"slices"

	"github.com/nhle/mailhub/internal/model"
)

// GetAccounts returns all configured accounts in insertion order.
func (s *SQLiteStore) GetAccounts(_ context.Context) ([]model.Account, error) {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	out := make([]model.Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = cloneAccount(a)
	}
	return out, nil
}

// GetAccount returns the account with the given ID or ErrNotFound.
func (s *SQLiteStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	for _, a := range s.accounts {
		if a.ID == id {
			c := cloneAccount(a)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// AddAccount appends an account.
func (s *SQLiteStore) AddAccount(ctx context.Context, account model.Account) error {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	next := append(slices.Clone(s.accounts), cloneAccount(account))
	if err := s.save(ctx, collectionAccounts, next); err != nil {
		return err
	}
	s.accounts = next
	return nil
}

// UpdateAccount replaces the account with the same ID.
func (s *SQLiteStore) UpdateAccount(ctx context.Context, account model.Account) error {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	idx := slices.IndexFunc(s.accounts, func(a model.Account) bool {
		return a.ID == account.ID
	})
	if idx < 0 {
		return nil
	}

	next := slices.Clone(s.accounts)
	next[idx] = cloneAccount(account)
	if err := s.save(ctx, collectionAccounts, next); err != nil {
		return err
	}
	s.accounts = next
	return nil
}

// DeleteAccount removes the account with the given ID. Messages fetched
// for it are kept.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	s.accountsMu.Lock()
	defer s.accountsMu.Unlock()

	next := slices.DeleteFunc(slices.Clone(s.accounts), func(a model.Account) bool {
		return a.ID == id
	})
	if len(next) == len(s.accounts) {
		return nil
	}

	if err := s.save(ctx, collectionAccounts, next); err != nil {
		return err
	}
	s.accounts = next
	return nil
}

func cloneAccount(a model.Account) model.Account {
	a.Tags = slices.Clone(a.Tags)
	return a
}
