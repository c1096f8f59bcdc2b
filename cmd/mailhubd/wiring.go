package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/ai"
	"github.com/nhle/mailhub/internal/app"
	"github.com/nhle/mailhub/internal/credential"
	"github.com/nhle/mailhub/internal/logger"
	"github.com/nhle/mailhub/internal/model"
	"github.com/nhle/mailhub/internal/notify"
	"github.com/nhle/mailhub/internal/source/email"
	"github.com/nhle/mailhub/internal/store"
	appsync "github.com/nhle/mailhub/internal/sync"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *model.AppConfig
	log    *zap.Logger
	ring   *credential.Store
	bus    *notify.Bus
	syncer *appsync.Syncer
	app    *app.App

	closers []func() error
}

func newRuntime(path string) (*runtime, error) {
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}
	st, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, "mailhub.db"), log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, bus: notify.NewBus()}
	rt.closers = append(rt.closers, st.Close, func() error {
		rt.bus.Close()
		return nil
	})

	// A nil *Store must not reach the resolver as a non-nil Getter.
	var getter credential.Getter
	if ring, err := credential.Open(filepath.Join(cfg.DataDir, "keyring")); err != nil {
		log.Warn("keyring unavailable, secrets must be stored inline", zap.Error(err))
	} else {
		rt.ring = ring
		getter = ring
	}

	adapter := email.NewAdapter(email.Options{
		FetchLimit: cfg.Sync.FetchLimit,
		SinceDays:  cfg.Sync.SinceDays,
		Tokens:     email.NewTokenRefresher(cfg.OAuth),
		Logger:     log,
	})

	syncOpts := appsync.Options{
		Concurrency:     cfg.Sync.Concurrency,
		FetchTimeout:    cfg.FetchTimeout(),
		ProviderTimeout: cfg.ProviderTimeout(),
		Logger:          log,
	}
	if cfg.AI.Breaker.Enabled {
		syncOpts.Breaker = &ai.BreakerSettings{
			MaxFailures: cfg.AI.Breaker.MaxFailures,
			OpenTimeout: time.Duration(cfg.AI.Breaker.OpenTimeoutSec) * time.Second,
		}
	}
	notifier := notify.Multi{notify.NewLogNotifier(log), rt.bus}
	rt.syncer = appsync.New(adapter, st, notifier, syncOpts)

	rt.app = app.New(app.Deps{
		Store:    st,
		Syncer:   rt.syncer,
		Sender:   adapter,
		Resolver: credential.NewResolver(getter, log),
		Logger:   log,
	})

	return rt, nil
}

// Close releases the runtime in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Error("closing runtime", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}
