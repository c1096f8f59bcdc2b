package ai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nhle/mailhub/internal/model"
)

const (
	anthropicDefaultURL   = "https://api.anthropic.com/v1/messages"
	anthropicDefaultModel = "claude-3-haiku-20240307"
	anthropicAPIVersion   = "2023-06-01"
)

// Anthropic classifies with the Messages API using the x-api-key header.
type Anthropic struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// NewAnthropic creates an Anthropic provider, applying endpoint and model
// overrides from cfg.
func NewAnthropic(cfg model.AIConfig, client *http.Client) *Anthropic {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = anthropicDefaultURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = anthropicDefaultModel
	}

	return &Anthropic{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		model:    modelName,
		client:   client,
	}
}

// Name returns model.AIProviderAnthropic.
func (p *Anthropic) Name() model.AIProvider {
	return model.AIProviderAnthropic
}

// Classify sends prompt to the Messages API and returns the first text
// content block.
func (p *Anthropic) Classify(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxAnswerTokens,
	}

	respBody, err := postJSON(ctx, p.client, p.Name(), p.endpoint, map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}, reqBody)
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Content) == 0 {
		return fallbackAnswer, nil
	}
	return answerOr(resp.Content[0].Text), nil
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}
