package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/model"
)

// BreakerSettings controls WithBreaker.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the
	// breaker.
	MaxFailures int

	// OpenTimeout is how long the breaker stays open before letting a
	// trial request through.
	OpenTimeout time.Duration
}

// breakerProvider short-circuits calls to a provider that keeps failing,
// so one sync does not wait on a dead backend for every message.
type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps p with a circuit breaker. Calls rejected by an open
// breaker fail with a *ProviderError.
func WithBreaker(p Provider, s BreakerSettings, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := uint32(5)
	if s.MaxFailures > 0 {
		maxFailures = uint32(s.MaxFailures)
	}
	openTimeout := s.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = time.Minute
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(p.Name()),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &breakerProvider{next: p, cb: cb}
}

func (b *breakerProvider) Name() model.AIProvider {
	return b.next.Name()
}

func (b *breakerProvider) Classify(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Classify(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &ProviderError{Provider: b.Name(), Err: err}
		}
		return "", err
	}
	return out.(string), nil
}
