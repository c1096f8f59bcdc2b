package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/extract"
	"github.com/nhle/mailhub/internal/model"
)

// promptBodyLimit is the number of body bytes included in a prompt.
const promptBodyLimit = 500

// Classifier combines regex extraction with a provider answer to produce
// a model.Classification for a message.
type Classifier struct {
	cfg      model.AIConfig
	provider Provider
}

// NewClassifier creates a Classifier. provider may be nil when cfg is
// disabled.
func NewClassifier(cfg model.AIConfig, provider Provider) *Classifier {
	return &Classifier{cfg: cfg, provider: provider}
}

// Options configures New.
type Options struct {
	// Timeout bounds each provider request. Zero uses the default.
	Timeout time.Duration

	// Breaker, when non-nil, wraps the provider in a circuit breaker.
	Breaker *BreakerSettings

	Logger *zap.Logger
}

// New builds a Classifier for cfg, constructing the configured provider.
// A disabled cfg needs no provider and never fails.
func New(cfg model.AIConfig, opts Options) (*Classifier, error) {
	if !cfg.Enabled {
		return NewClassifier(cfg, nil), nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	provider, err := NewProvider(cfg, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	if opts.Breaker != nil {
		provider = WithBreaker(provider, *opts.Breaker, opts.Logger)
	}

	return NewClassifier(cfg, provider), nil
}

// ClassifyEmail classifies msg. When classification is disabled it
// returns model.DefaultClassification without looking at the message.
// A provider failure is returned unchanged so the caller can decide how
// to degrade.
func (c *Classifier) ClassifyEmail(
	ctx context.Context,
	msg *model.Message,
) (model.Classification, error) {
	if !c.cfg.Enabled || msg == nil {
		return model.DefaultClassification(), nil
	}
	if c.provider == nil {
		return model.Classification{}, errors.New("classifier has no provider")
	}

	code := extract.Code(msg.Body)
	link := extract.Link(msg.Body)

	answer, err := c.provider.Classify(ctx, BuildPrompt(msg.Subject, msg.Body))
	if err != nil {
		return model.Classification{}, fmt.Errorf("classifying message %s: %w", msg.ID, err)
	}

	category := CategoryFromAnswer(answer)

	return model.Classification{
		Category:         category,
		VerificationCode: code,
		VerificationLink: link,
		ShouldNotify:     category.Notifies(),
	}, nil
}

// BuildPrompt returns the classification prompt for a message. Only the
// first 500 bytes of the body are included, cut back to a rune boundary.
func BuildPrompt(subject, body string) string {
	var sb strings.Builder

	sb.WriteString("Classify this email into one of these categories: ")
	sb.WriteString("marketing, important, verification, or normal.\n\n")
	sb.WriteString("Subject: ")
	sb.WriteString(subject)
	sb.WriteString("\n\nBody preview: ")
	sb.WriteString(truncateUTF8(body, promptBodyLimit))
	sb.WriteString("\n\nRespond with just the category name.")

	return sb.String()
}

// truncateUTF8 returns at most n bytes of s without splitting a UTF-8
// sequence.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// CategoryFromAnswer maps a free-text provider answer onto a category.
// Keywords are tested case-insensitively in the order marketing,
// important, verification; anything else is routine.
func CategoryFromAnswer(answer string) model.Category {
	a := strings.ToLower(answer)
	switch {
	case strings.Contains(a, "marketing"):
		return model.CategoryPromotional
	case strings.Contains(a, "important"):
		return model.CategoryPriority
	case strings.Contains(a, "verification"):
		return model.CategoryOneTimeCode
	default:
		return model.CategoryRoutine
	}
}
