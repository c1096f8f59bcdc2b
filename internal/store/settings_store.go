package store

import (
	"context"

	"github.com/nhle/mailhub/internal/model"
)

// GetSettings returns the current settings, or the defaults if none have
// been saved.
func (s *SQLiteStore) GetSettings(_ context.Context) (model.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	return cloneSettings(s.settings), nil
}

// UpdateSettings replaces the stored settings.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings model.Settings) error {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	next := cloneSettings(settings)
	if err := s.save(ctx, collectionSettings, next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

func cloneSettings(in model.Settings) model.Settings {
	out := in
	if in.AIConfig != nil {
		cfg := *in.AIConfig
		out.AIConfig = &cfg
	}
	return out
}
