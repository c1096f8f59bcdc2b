// Package notify delivers user-facing alerts raised during a sync.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/model"
)

// Notifier delivers a notification. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// FromMessage builds the notification for a classified message.
func FromMessage(msg model.Message, now time.Time) model.Notification {
	n := model.Notification{
		MessageID: msg.ID,
		AccountID: msg.AccountID,
		Subject:   msg.Subject,
		From:      msg.From.Address,
		Category:  msg.Category(),
		CreatedAt: now,
	}
	if msg.Classification != nil {
		n.VerificationCode = msg.Classification.VerificationCode
	}
	return n
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n model.Notification) error {
	fields := []zap.Field{
		zap.String("account_id", n.AccountID),
		zap.String("message_id", n.MessageID),
		zap.String("from", n.From),
		zap.String("subject", n.Subject),
		zap.String("category", string(n.Category)),
	}
	if n.VerificationCode != "" {
		fields = append(fields, zap.String("code", n.VerificationCode))
	}
	l.logger.Info("new message", fields...)
	return nil
}

// Multi fans a notification out to every notifier and joins their
// errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, nf := range m {
		if err := nf.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, n model.Notification) error

func (f Func) Notify(ctx context.Context, n model.Notification) error {
	return f(ctx, n)
}
