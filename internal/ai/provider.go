package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nhle/mailhub/internal/metrics"
	"github.com/nhle/mailhub/internal/model"
)

const (
	// fallbackAnswer is returned when a provider answers with a body the
	// adapter cannot read an answer from.
	fallbackAnswer = "normal"

	// maxAnswerTokens bounds the response length; a one-word answer is
	// all classification needs.
	maxAnswerTokens = 50

	defaultTimeout = 20 * time.Second

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1 << 20
)

// ErrUnknownProvider is returned when the configured provider is not one
// of the supported backends.
var ErrUnknownProvider = errors.New("unknown classification provider")

// Provider is a text-completion backend that answers a classification
// prompt with free text.
type Provider interface {
	// Name returns the provider identifier.
	Name() model.AIProvider

	// Classify sends prompt as a single user turn and returns the text
	// answer. Transport failures and non-2xx responses are returned as
	// *ProviderError; an unreadable 2xx body yields "normal".
	Classify(ctx context.Context, prompt string) (string, error)
}

// ProviderError reports that a provider call could not be completed.
// StatusCode is zero when no HTTP response was received.
type ProviderError struct {
	Provider   model.AIProvider
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err (or any error in its chain) is a
// ProviderError.
func IsProviderError(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr)
}

// NewProvider builds the provider selected by cfg. A nil client gets a
// client with the default timeout.
func NewProvider(cfg model.AIConfig, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	switch cfg.Provider {
	case model.AIProviderOpenAI:
		return NewOpenAI(cfg, client), nil
	case model.AIProviderAnthropic:
		return NewAnthropic(cfg, client), nil
	case model.AIProviderGemini:
		return NewGemini(cfg, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// chatMessage is the single user turn shared by the OpenAI and Anthropic
// request shapes.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// postJSON sends body to url and returns the raw response body. Any
// failure to obtain a 2xx response is returned as *ProviderError.
func postJSON(
	ctx context.Context,
	client *http.Client,
	provider model.AIProvider,
	url string,
	headers map[string]string,
	body interface{},
) ([]byte, error) {
	start := time.Now()
	respBody, err := doPost(ctx, client, provider, url, headers, body)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordProviderCall(string(provider), status, time.Since(start))

	return respBody, err
}

func doPost(
	ctx context.Context,
	client *http.Client,
	provider model.AIProvider,
	url string,
	headers map[string]string,
	body interface{},
) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("calling API: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading response: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        errors.New(apiErrorMessage(respBody)),
		}
	}

	return respBody, nil
}

// apiErrorMessage extracts the error message that all three providers
// return under {"error": {"message": ...}}, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// answerOr returns s, or the fallback answer when s is empty.
func answerOr(s string) string {
	if s == "" {
		return fallbackAnswer
	}
	return s
}
