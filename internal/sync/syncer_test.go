package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/notify"
	"github.com/nhle/mailhub/internal/source"
	"github.com/nhle/mailhub/internal/store"
	"github.com/nhle/mailhub/tests/testutil"
)

// fakeClassifier answers by message ID.
type fakeClassifier struct {
	categories map[string]model.Category
	fail       map[string]error
}

func (f *fakeClassifier) ClassifyEmail(_ context.Context, msg *model.Message) (model.Classification, error) {
	if err := f.fail[msg.ID]; err != nil {
		return model.Classification{}, err
	}
	cat, ok := f.categories[msg.ID]
	if !ok {
		cat = model.CategoryRoutine
	}
	return model.Classification{Category: cat, ShouldNotify: cat.Notifies()}, nil
}

// recorder collects notifications.
type recorder struct {
	mu  gosync.Mutex
	got []model.Notification
}

func (r *recorder) Notify(_ context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recorder) all() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.got...)
}

func fetcherFor(byAccount map[string][]model.Message, failing map[string]error) source.Fetcher {
	return source.FetcherFunc(func(_ context.Context, a model.Account) ([]model.Message, error) {
		if err := failing[a.ID]; err != nil {
			return nil, err
		}
		return byAccount[a.ID], nil
	})
}

func enabledSettings(autoDelete bool) model.Settings {
	return model.Settings{
		Notifications: true,
		Theme:         model.ThemeSystem,
		AIConfig: &model.AIConfig{
			Enabled:    true,
			Provider:   model.AIProviderOpenAI,
			APIKey:     "k",
			AutoDelete: autoDelete,
		},
	}
}

func withClassifier(c Classifier) Options {
	return Options{
		NewClassifier: func(model.AIConfig) (Classifier, error) { return c, nil },
	}
}

func TestSync_PartialFailureAutoDeleteAndNotify(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	rec := &recorder{}

	promo := testutil.Message("promo")
	prio := testutil.Message("prio")
	prio.From = model.EmailAddress{Name: "Boss", Address: "boss@example.com"}

	fetcher := fetcherFor(
		map[string][]model.Message{"B": {promo, prio}},
		map[string]error{"A": &source.AuthError{AccountID: "A", Message: "denied"}},
	)
	classifier := &fakeClassifier{categories: map[string]model.Category{
		"promo": model.CategoryPromotional,
		"prio":  model.CategoryPriority,
	}}

	opts := withClassifier(classifier)
	opts.Logger = zaptest.NewLogger(t)
	s := New(fetcher, st, rec, opts)

	report, err := s.Sync(ctx,
		[]model.Account{testutil.Account("A"), testutil.Account("B")},
		enabledSettings(true),
	)
	require.NoError(t, err)
	require.Len(t, report.Accounts, 2)

	a := report.Accounts[0]
	assert.Equal(t, "A", a.AccountID)
	assert.True(t, source.IsAuthError(a.Err))

	b := report.Accounts[1]
	assert.NoError(t, b.Err)
	assert.Equal(t, 2, b.Fetched)
	assert.Equal(t, 2, b.Classified)
	assert.Equal(t, 1, b.Dropped)
	assert.Equal(t, 1, b.Inserted)
	assert.Equal(t, 1, b.Notified)

	stored, err := st.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "prio", stored[0].ID)
	require.NotNil(t, stored[0].Classification)
	assert.Equal(t, model.CategoryPriority, stored[0].Classification.Category)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "prio", events[0].MessageID)
	assert.Equal(t, prio.Subject, events[0].Subject)
	assert.Equal(t, "boss@example.com", events[0].From)

	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, 1, report.Inserted())
}

func TestSync_PromotionalKeptWithoutAutoDelete(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)

	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("promo")}, nil)
	classifier := &fakeClassifier{categories: map[string]model.Category{"promo": model.CategoryPromotional}}

	report, err := New(fetcher, st, nil, withClassifier(classifier)).
		Sync(ctx, []model.Account{testutil.Account("B")}, enabledSettings(false))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts[0].Dropped)
	assert.Equal(t, 1, report.Accounts[0].Inserted)
}

func TestSync_DisabledAttachesDefault(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	rec := &recorder{}

	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("m1", "m2")}, nil)
	opts := Options{NewClassifier: func(model.AIConfig) (Classifier, error) {
		t.Fatal("classifier must not be built when disabled")
		return nil, nil
	}}

	settings := model.DefaultSettings()
	settings.AIConfig = &model.AIConfig{Enabled: false, Provider: "bogus", AutoDelete: true}

	report, err := New(fetcher, st, rec, opts).Sync(ctx, []model.Account{testutil.Account("B")}, settings)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Accounts[0].Inserted)
	assert.Equal(t, 0, report.Accounts[0].Classified)

	stored, err := st.GetMessages(ctx)
	require.NoError(t, err)
	for _, m := range stored {
		require.NotNil(t, m.Classification)
		assert.Equal(t, model.DefaultClassification(), *m.Classification)
	}
	assert.Empty(t, rec.all())
}

func TestSync_ClassificationFailureStoresUnclassified(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)

	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("bad", "good")}, nil)
	classifier := &fakeClassifier{
		categories: map[string]model.Category{"good": model.CategoryOneTimeCode},
		fail:       map[string]error{"bad": errors.New("provider down")},
	}

	report, err := New(fetcher, st, &recorder{}, withClassifier(classifier)).
		Sync(ctx, []model.Account{testutil.Account("B")}, enabledSettings(true))
	require.NoError(t, err)

	out := report.Accounts[0]
	assert.Equal(t, 1, out.Classified)
	assert.Equal(t, 1, out.ClassificationFailures)
	assert.Equal(t, 2, out.Inserted)
	assert.Equal(t, 1, out.Notified)

	bad, err := st.GetMessage(ctx, "bad")
	require.NoError(t, err)
	assert.Nil(t, bad.Classification)
}

func TestSync_NotificationsDisabled(t *testing.T) {
	rec := &recorder{}
	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("prio")}, nil)
	classifier := &fakeClassifier{categories: map[string]model.Category{"prio": model.CategoryPriority}}

	settings := enabledSettings(false)
	settings.Notifications = false

	report, err := New(fetcher, testutil.NewTestStore(t), rec, withClassifier(classifier)).
		Sync(context.Background(), []model.Account{testutil.Account("B")}, settings)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts[0].Notified)
	assert.Empty(t, rec.all())
}

func TestSync_ResyncDoesNotRenotify(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	rec := &recorder{}

	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("prio", "other")}, nil)
	classifier := &fakeClassifier{categories: map[string]model.Category{"prio": model.CategoryPriority}}
	s := New(fetcher, st, rec, withClassifier(classifier))

	accounts := []model.Account{testutil.Account("B")}
	_, err := s.Sync(ctx, accounts, enabledSettings(false))
	require.NoError(t, err)

	report, err := s.Sync(ctx, accounts, enabledSettings(false))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts[0].Inserted)
	assert.Equal(t, 0, report.Accounts[0].Notified)
	assert.Len(t, rec.all(), 1)

	stored, err := st.GetMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "prio"}, testutil.IDs(stored))
}

func TestSync_RepeatedIDInBatchNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	rec := &recorder{}

	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("m1", "m1")}, nil)
	classifier := &fakeClassifier{categories: map[string]model.Category{"m1": model.CategoryPriority}}
	s := New(fetcher, st, rec, withClassifier(classifier))

	report, err := s.Sync(ctx, []model.Account{testutil.Account("B")}, enabledSettings(false))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Accounts[0].Inserted)
	assert.Equal(t, 1, report.Accounts[0].Notified)
	assert.Len(t, rec.all(), 1)
}

type failingStore struct {
	err error
}

func (f failingStore) GetMessage(context.Context, string) (*model.Message, error) {
	return nil, store.ErrNotFound
}

func (f failingStore) AddMessages(context.Context, []model.Message) (int, error) {
	return 0, f.err
}

func TestSync_PersistenceErrorIsFatal(t *testing.T) {
	diskFull := errors.New("disk full")
	var fetched atomic.Int32
	fetcher := source.FetcherFunc(func(_ context.Context, a model.Account) ([]model.Message, error) {
		fetched.Add(1)
		return testutil.Messages(a.ID + "-m"), nil
	})

	report, err := New(fetcher, failingStore{err: diskFull}, nil, Options{}).Sync(
		context.Background(),
		[]model.Account{testutil.Account("A"), testutil.Account("B")},
		model.DefaultSettings(),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	require.NotNil(t, report)
	assert.Equal(t, int32(1), fetched.Load(), "later accounts are not processed")
	assert.Error(t, report.Accounts[1].Err)
}

func TestSync_InvalidConfig(t *testing.T) {
	var fetched atomic.Int32
	fetcher := source.FetcherFunc(func(context.Context, model.Account) ([]model.Message, error) {
		fetched.Add(1)
		return nil, nil
	})

	unknown := enabledSettings(false)
	unknown.AIConfig.Provider = "bogus"

	noKey := enabledSettings(false)
	noKey.AIConfig.APIKey = ""

	for name, settings := range map[string]model.Settings{"unknown provider": unknown, "no key": noKey} {
		t.Run(name, func(t *testing.T) {
			_, err := New(fetcher, testutil.NewTestStore(t), nil, Options{}).
				Sync(context.Background(), []model.Account{testutil.Account("A")}, settings)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
	assert.Equal(t, int32(0), fetched.Load())
}

func TestSync_ConcurrentAccounts(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)

	fetcher := source.FetcherFunc(func(_ context.Context, a model.Account) ([]model.Message, error) {
		time.Sleep(5 * time.Millisecond)
		return testutil.Messages(a.ID+"-1", a.ID+"-2"), nil
	})

	accounts := []model.Account{testutil.Account("A"), testutil.Account("B"), testutil.Account("C")}
	report, err := New(fetcher, st, nil, Options{Concurrency: 3}).Sync(ctx, accounts, model.DefaultSettings())
	require.NoError(t, err)

	for i, a := range accounts {
		assert.Equal(t, a.ID, report.Accounts[i].AccountID)
		assert.Equal(t, 2, report.Accounts[i].Inserted)
	}

	stored, err := st.GetMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 6)
}

func TestSync_FetchTimeout(t *testing.T) {
	fetcher := source.FetcherFunc(func(ctx context.Context, _ model.Account) ([]model.Message, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	report, err := New(fetcher, testutil.NewTestStore(t), nil, Options{FetchTimeout: 10 * time.Millisecond}).
		Sync(context.Background(), []model.Account{testutil.Account("A")}, model.DefaultSettings())
	require.NoError(t, err)
	assert.ErrorIs(t, report.Accounts[0].Err, context.DeadlineExceeded)
}

func TestSync_NotifierErrorIsNotFatal(t *testing.T) {
	fetcher := fetcherFor(map[string][]model.Message{"B": testutil.Messages("prio")}, nil)
	classifier := &fakeClassifier{categories: map[string]model.Category{"prio": model.CategoryPriority}}
	broken := notify.Func(func(context.Context, model.Notification) error { return errors.New("no display") })

	report, err := New(fetcher, testutil.NewTestStore(t), broken, withClassifier(classifier)).
		Sync(context.Background(), []model.Account{testutil.Account("B")}, enabledSettings(false))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts[0].Notified)
	assert.Equal(t, 1, report.Accounts[0].Inserted)
}
