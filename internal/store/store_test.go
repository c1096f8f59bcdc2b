package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/store"
	"github.com/nhle/mailhub/tests/testutil"
)

func TestAddMessages_HeadInsertInBatchOrder(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	n, err := s.AddMessages(ctx, testutil.Messages("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.AddMessages(ctx, testutil.Messages("c", "d"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.GetMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, testutil.IDs(got))
}

func TestAddMessages_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.AddMessages(ctx, testutil.Messages("a", "b"))
	require.NoError(t, err)

	n, err := s.AddMessages(ctx, testutil.Messages("b", "c", "c", "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, testutil.IDs(got))
}

func TestAddMessages_DuplicateKeepsStoredCopy(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	orig := testutil.Message("a")
	_, err := s.AddMessages(ctx, []model.Message{orig})
	require.NoError(t, err)

	changed := orig
	changed.Subject = "rewritten"
	inserted, err := s.AddMessage(ctx, changed)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.GetMessage(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, orig.Subject, got.Subject)
}

func TestProperty_AddMessagesIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	idGen := gen.SliceOf(gen.IntRange(0, 9).Map(func(i int) string {
		return fmt.Sprintf("m%d", i)
	}))

	properties.Property("ingesting twice equals ingesting once", prop.ForAll(
		func(first, second []string) bool {
			ctx := context.Background()
			s := testutil.NewTestStore(t)

			if _, err := s.AddMessages(ctx, testutil.Messages(first...)); err != nil {
				return false
			}
			if _, err := s.AddMessages(ctx, testutil.Messages(second...)); err != nil {
				return false
			}
			once, _ := s.GetMessages(ctx)

			n, err := s.AddMessages(ctx, testutil.Messages(second...))
			if err != nil || n != 0 {
				return false
			}
			twice, _ := s.GetMessages(ctx)

			if len(once) != len(twice) {
				return false
			}
			seen := map[string]bool{}
			for i := range once {
				if once[i].ID != twice[i].ID || seen[once[i].ID] {
					return false
				}
				seen[once[i].ID] = true
			}
			return true
		},
		idGen,
		idGen,
	))

	properties.TestingRun(t)
}

func TestMessageMutations(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.AddMessages(ctx, testutil.Messages("a", "b"))
	require.NoError(t, err)

	require.NoError(t, s.ModifyMessage(ctx, "a", func(m *model.Message) {
		m.IsRead = true
		m.Labels = append(m.Labels, "work")
		m.ID = "hijack"
	}))
	got, err := s.GetMessage(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.Equal(t, []string{"work"}, got.Labels)

	upd := testutil.Message("b")
	upd.IsStarred = true
	require.NoError(t, s.UpdateMessage(ctx, upd))
	got, err = s.GetMessage(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.IsStarred)

	require.NoError(t, s.DeleteMessage(ctx, "a"))
	_, err = s.GetMessage(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Unknown IDs are silent no-ops.
	require.NoError(t, s.ModifyMessage(ctx, "zzz", func(m *model.Message) { m.IsRead = true }))
	require.NoError(t, s.UpdateMessage(ctx, testutil.Message("zzz")))
	require.NoError(t, s.DeleteMessage(ctx, "zzz"))

	all, err := s.GetMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, testutil.IDs(all))
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.AddAccount(ctx, testutil.Account("a1")))
	require.NoError(t, s.AddAccount(ctx, testutil.Account("a2")))

	upd := testutil.Account("a1")
	upd.Name = "Personal"
	require.NoError(t, s.UpdateAccount(ctx, upd))
	require.NoError(t, s.UpdateAccount(ctx, testutil.Account("ghost")))

	got, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Personal", got.Name)

	_, err = s.GetAccount(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteAccount(ctx, "a2"))
	require.NoError(t, s.DeleteAccount(ctx, "ghost"))

	all, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a1", all[0].ID)
}

func TestSettings_DefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), got)

	cfg := &model.AIConfig{Enabled: true, Provider: model.AIProviderGemini, APIKey: "k"}
	require.NoError(t, s.UpdateSettings(ctx, model.Settings{
		Notifications: false,
		AIConfig:      cfg,
		Theme:         model.ThemeDark,
	}))

	// The store keeps its own copy.
	cfg.APIKey = "mutated"

	got, err = s.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, got.Notifications)
	assert.Equal(t, model.ThemeDark, got.Theme)
	require.NotNil(t, got.AIConfig)
	assert.Equal(t, "k", got.AIConfig.APIKey)
}

func TestFailedSaveLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.AddMessages(ctx, testutil.Messages("a"))
	require.NoError(t, err)
	require.NoError(t, s.AddAccount(ctx, testutil.Account("a1")))

	require.NoError(t, s.Close())

	_, err = s.AddMessages(ctx, testutil.Messages("b"))
	require.Error(t, err)
	require.Error(t, s.AddAccount(ctx, testutil.Account("a2")))
	require.Error(t, s.UpdateSettings(ctx, model.Settings{Theme: model.ThemeLight}))

	msgs, _ := s.GetMessages(ctx)
	assert.Equal(t, []string{"a"}, testutil.IDs(msgs))
	accounts, _ := s.GetAccounts(ctx)
	assert.Len(t, accounts, 1)
	settings, _ := s.GetSettings(ctx)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mailhub.db")

	s, err := store.NewSQLiteStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = s.AddMessages(ctx, testutil.Messages("a", "b"))
	require.NoError(t, err)
	require.NoError(t, s.AddAccount(ctx, testutil.Account("a1")))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	msgs, err := s.GetMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, testutil.IDs(msgs))

	accounts, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "secret", accounts[0].Config.Password)
}

func TestCorruptCollectionFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mailhub.db")

	s, err := store.NewSQLiteStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = s.AddMessages(ctx, testutil.Messages("a"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateSettings(ctx, model.Settings{Theme: model.ThemeDark}))
	require.NoError(t, s.Close())

	db, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE collections SET data = '{{{' WHERE name IN ('emails', 'settings')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err = store.NewSQLiteStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	msgs, err := s.GetMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestMessages_CallerCopiesAreDetached(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	c := model.Classification{Category: model.CategoryPriority, ShouldNotify: true}
	msg := testutil.Message("a")
	msg.Labels = []string{"x"}
	msg.Classification = &c
	_, err := s.AddMessage(ctx, msg)
	require.NoError(t, err)

	// Changing the inserted value does not reach the store.
	c.Category = model.CategoryPromotional
	msg.Labels[0] = "inserted"
	msg.To[0].Address = "changed@example.com"

	got, err := s.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.CategoryPriority, got[0].Classification.Category)
	assert.Equal(t, []string{"x"}, got[0].Labels)
	assert.Equal(t, "me@example.com", got[0].To[0].Address)

	// Changing a returned value does not reach the store either.
	got[0].Labels[0] = "returned"
	got[0].Classification.Category = model.CategoryPromotional

	one, err := s.GetMessage(ctx, "a")
	require.NoError(t, err)
	one.Labels[0] = "single"
	one.Classification.Category = model.CategoryRoutine

	again, err := s.GetMessage(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Labels)
	assert.Equal(t, model.CategoryPriority, again.Classification.Category)
}

func TestModifyMessage_DetachedFromCaller(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	msg := testutil.Message("a")
	msg.Labels = []string{"x"}
	_, err := s.AddMessage(ctx, msg)
	require.NoError(t, err)

	labels := []string{"inbox"}
	require.NoError(t, s.ModifyMessage(ctx, "a", func(m *model.Message) {
		m.Labels = labels
	}))
	labels[0] = "later"

	replacement := testutil.Message("a")
	replacement.Labels = []string{"updated"}
	require.NoError(t, s.UpdateMessage(ctx, replacement))
	replacement.Labels[0] = "later"

	got, err := s.GetMessage(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"updated"}, got.Labels)
}

func TestAccounts_CallerCopiesAreDetached(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	a := testutil.Account("A")
	a.Tags = []string{"work"}
	require.NoError(t, s.AddAccount(ctx, a))
	a.Tags[0] = "inserted"

	all, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	all[0].Tags[0] = "returned"

	one, err := s.GetAccount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, one.Tags)
	one.Tags[0] = "single"

	again, err := s.GetAccount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, again.Tags)
}
