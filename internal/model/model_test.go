package model_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailhub/internal/model"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 300, cfg.Sync.IntervalSec)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Equal(t, 100, cfg.Sync.FetchLimit)
	assert.True(t, cfg.AI.Breaker.Enabled)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("MAILHUB_SYNC_CONCURRENCY", "4")
	t.Setenv("MAILHUB_LOG_LEVEL", "debug")

	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_ClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  concurrency: 0\n  interval_sec: -5\n"), 0o600))

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Equal(t, 300, cfg.Sync.IntervalSec)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync: [unterminated"), 0o600))

	_, err := model.LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := model.LoadConfig(path)
	require.NoError(t, err)
	cfg.DataDir = "/var/lib/mailhub"
	cfg.Sync.IntervalSec = 60
	cfg.OAuth.Google.ClientID = "google-client"
	require.NoError(t, model.SaveConfig(path, cfg))

	got, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/mailhub", got.DataDir)
	assert.Equal(t, 60, got.Sync.IntervalSec)
	assert.Equal(t, "google-client", got.OAuth.Google.ClientID)
}

func TestCategory_Notifies(t *testing.T) {
	assert.True(t, model.CategoryPriority.Notifies())
	assert.True(t, model.CategoryOneTimeCode.Notifies())
	assert.False(t, model.CategoryRoutine.Notifies())
	assert.False(t, model.CategoryPromotional.Notifies())
}

func TestMessage_WireNames(t *testing.T) {
	c := model.Classification{Category: model.CategoryPromotional}
	msg := model.Message{ID: "m1", AccountID: "a1", IsRead: true, Classification: &c}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "a1", fields["account_id"])
	assert.Equal(t, true, fields["is_read"])
	assert.Equal(t, "marketing", fields["ai_classification"].(map[string]any)["category"])
	assert.NotContains(t, fields, "labels")
}

func TestSettings(t *testing.T) {
	d := model.DefaultSettings()
	assert.True(t, d.Notifications)
	assert.Equal(t, model.ThemeSystem, d.Theme)
	assert.False(t, d.ClassificationEnabled())

	d.AIConfig = &model.AIConfig{Enabled: true, Provider: model.AIProviderOpenAI}
	assert.True(t, d.ClassificationEnabled())
	assert.True(t, model.AIProviderOpenAI.Valid())
	assert.False(t, model.AIProvider("bogus").Valid())
}

func TestAccount_LoginName(t *testing.T) {
	a := model.Account{Email: "me@example.com"}
	assert.Equal(t, "me@example.com", a.LoginName())
	a.Config.Username = "login"
	assert.Equal(t, "login", a.LoginName())
}

func TestEnumValid(t *testing.T) {
	assert.True(t, model.ProtocolOAuth2.Valid())
	assert.False(t, model.Protocol("smtp").Valid())
	assert.True(t, model.MailProviderGmail.Valid())
	assert.False(t, model.MailProvider("yahoo").Valid())
	assert.True(t, model.ThemeDark.Valid())
	assert.False(t, model.Theme("neon").Valid())
}
