package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/mailhub/internal/ai"
	"github.com/nhle/mailhub/internal/logger"
	"github.com/nhle/mailhub/internal/metrics"
	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/notify"
	"github.com/nhle/mailhub/internal/source"
	"github.com/nhle/mailhub/internal/store"
)

// ErrInvalidConfig is returned by Sync when classification is enabled
// with an unknown provider or without an API key. No account is
// processed in that case.
var ErrInvalidConfig = errors.New("invalid classification config")

// defaultFetchTimeout bounds a single account fetch.
const defaultFetchTimeout = 60 * time.Second

// Classifier classifies a single message.
type Classifier interface {
	ClassifyEmail(ctx context.Context, msg *model.Message) (model.Classification, error)
}

// ClassifierFactory builds the classifier used for one sync pass.
type ClassifierFactory func(cfg model.AIConfig) (Classifier, error)

// MessageStore is the part of the store a sync writes to.
type MessageStore interface {
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	AddMessages(ctx context.Context, msgs []model.Message) (int, error)
}

// Options configures a Syncer.
type Options struct {
	// Concurrency is the number of accounts synced at once. Values
	// below 1 mean sequential.
	Concurrency int

	// FetchTimeout bounds each account fetch. Zero uses the default.
	FetchTimeout time.Duration

	// ProviderTimeout bounds each classification request.
	ProviderTimeout time.Duration

	// Breaker, when non-nil, short-circuits a provider that keeps
	// failing within one pass.
	Breaker *ai.BreakerSettings

	// NewClassifier overrides how classifiers are built.
	NewClassifier ClassifierFactory

	Logger *zap.Logger
}

// Syncer runs the fetch, classify, filter, notify and store pipeline
// over a set of accounts.
type Syncer struct {
	fetcher       source.Fetcher
	store         MessageStore
	notifier      notify.Notifier
	concurrency   int
	fetchTimeout  time.Duration
	newClassifier ClassifierFactory
	logger        *zap.Logger
	now           func() time.Time
}

// New creates a Syncer. notifier may be nil.
func New(
	fetcher source.Fetcher,
	st MessageStore,
	notifier notify.Notifier,
	opts Options,
) *Syncer {
	s := &Syncer{
		fetcher:       fetcher,
		store:         st,
		notifier:      notifier,
		concurrency:   opts.Concurrency,
		fetchTimeout:  opts.FetchTimeout,
		newClassifier: opts.NewClassifier,
		logger:        opts.Logger,
		now:           time.Now,
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newClassifier == nil {
		aiOpts := ai.Options{
			Timeout: opts.ProviderTimeout,
			Breaker: opts.Breaker,
			Logger:  s.logger,
		}
		s.newClassifier = func(cfg model.AIConfig) (Classifier, error) {
			c, err := ai.New(cfg, aiOpts)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return s
}

// AccountOutcome summarizes the sync of one account.
type AccountOutcome struct {
	AccountID string

	Fetched                int
	Classified             int
	ClassificationFailures int
	Dropped                int
	Inserted               int
	Notified               int

	// Err is the fetch error, if the account could not be fetched.
	Err error
}

// Report is the result of one sync pass, with one outcome per account in
// the order the accounts were given.
type Report struct {
	Accounts   []AccountOutcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Inserted returns the number of new messages stored across accounts.
func (r *Report) Inserted() int {
	n := 0
	for _, a := range r.Accounts {
		n += a.Inserted
	}
	return n
}

// Failed returns the outcomes of accounts that could not be fetched.
func (r *Report) Failed() []AccountOutcome {
	var out []AccountOutcome
	for _, a := range r.Accounts {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// Sync processes every account. Fetch failures are recorded on the
// account outcome and do not stop the pass. A persistence failure stops
// the pass and is returned together with the partial report.
func (s *Syncer) Sync(
	ctx context.Context,
	accounts []model.Account,
	settings model.Settings,
) (*Report, error) {
	classifier, err := s.classifier(settings)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Accounts:  make([]AccountOutcome, len(accounts)),
		StartedAt: s.now(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, account := range accounts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report.Accounts[i] = AccountOutcome{AccountID: account.ID, Err: err}
				return nil
			}
			out, err := s.syncAccount(gctx, account, settings, classifier)
			report.Accounts[i] = out
			return err
		})
	}

	err = g.Wait()
	report.FinishedAt = s.now()
	metrics.SyncDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	if err != nil {
		s.logger.Error("sync aborted", zap.Error(err))
		return report, err
	}

	s.logger.Info("sync finished",
		zap.Int("accounts", len(accounts)),
		zap.Int("failed", len(report.Failed())),
		zap.Int("inserted", report.Inserted()),
	)
	return report, nil
}

// classifier validates the classification config and builds the
// classifier for one pass. It returns nil when classification is off.
func (s *Syncer) classifier(settings model.Settings) (Classifier, error) {
	if !settings.ClassificationEnabled() {
		return nil, nil
	}

	cfg := *settings.AIConfig
	if !cfg.Provider.Valid() {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key for %s", ErrInvalidConfig, cfg.Provider)
	}

	c, err := s.newClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c, nil
}

// syncAccount runs the pipeline for one account. Only a persistence
// error is returned; fetch errors are reported on the outcome.
func (s *Syncer) syncAccount(
	ctx context.Context,
	account model.Account,
	settings model.Settings,
	classifier Classifier,
) (AccountOutcome, error) {
	out := AccountOutcome{AccountID: account.ID}
	log := logger.ForAccount(s.logger, account)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	msgs, err := s.fetcher.Fetch(fetchCtx, account)
	cancel()
	if err != nil {
		out.Err = err
		log.Warn("fetch failed",
			zap.Bool("auth", source.IsAuthError(err)),
			zap.Error(err),
		)
		metrics.RecordAccount("fetch_failed")
		return out, nil
	}
	out.Fetched = len(msgs)

	autoDelete := classifier != nil && settings.AIConfig.AutoDelete
	survivors := make([]model.Message, 0, len(msgs))

	for i := range msgs {
		msg := msgs[i]

		if classifier != nil {
			c, err := classifier.ClassifyEmail(ctx, &msg)
			if err != nil {
				out.ClassificationFailures++
				metrics.ClassificationFailures.Inc()
				log.Warn("classification failed, storing unclassified",
					zap.String("message_id", msg.ID),
					zap.Bool("provider", ai.IsProviderError(err)),
					zap.Error(err),
				)
				msg.Classification = nil
			} else {
				out.Classified++
				metrics.RecordClassified(string(c.Category))
				msg.Classification = &c
			}
		} else {
			d := model.DefaultClassification()
			msg.Classification = &d
		}

		if autoDelete && msg.Category() == model.CategoryPromotional {
			out.Dropped++
			metrics.MessagesDropped.Inc()
			log.Debug("dropping promotional message", zap.String("message_id", msg.ID))
			continue
		}

		survivors = append(survivors, msg)
	}

	if settings.Notifications && s.notifier != nil {
		n, err := s.notify(ctx, survivors, log)
		if err != nil {
			return out, err
		}
		out.Notified = n
	}

	inserted, err := s.store.AddMessages(ctx, survivors)
	if err != nil {
		return out, fmt.Errorf("storing messages for account %s: %w", account.ID, err)
	}
	out.Inserted = inserted
	metrics.MessagesStored.Add(float64(inserted))
	metrics.RecordAccount("ok")

	log.Info("account synced",
		zap.Int("fetched", out.Fetched),
		zap.Int("dropped", out.Dropped),
		zap.Int("inserted", out.Inserted),
		zap.Int("notified", out.Notified),
	)
	return out, nil
}

// notify emits a notification for each message that asks for one and is
// not stored yet, so a message still in the fetch window is announced
// once. Only the first copy of a repeated ID is considered, matching the
// copy AddMessages keeps.
func (s *Syncer) notify(
	ctx context.Context,
	msgs []model.Message,
	log *zap.Logger,
) (int, error) {
	sent := 0
	seen := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}

		if msg.Classification == nil || !msg.Classification.ShouldNotify {
			continue
		}

		_, err := s.store.GetMessage(ctx, msg.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return sent, fmt.Errorf("looking up message %s: %w", msg.ID, err)
		}

		if err := s.notifier.Notify(ctx, notify.FromMessage(msg, s.now())); err != nil {
			log.Warn("notification failed",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
		metrics.Notifications.Inc()
	}
	return sent, nil
}
