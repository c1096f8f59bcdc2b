package ai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nhle/mailhub/internal/model"
)

const (
	openAIDefaultURL   = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-3.5-turbo"
	openAITemperature  = 0.3
)

// OpenAI classifies with the Chat Completions API using bearer auth.
type OpenAI struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// NewOpenAI creates an OpenAI provider, applying endpoint and model
// overrides from cfg.
func NewOpenAI(cfg model.AIConfig, client *http.Client) *OpenAI {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = openAIDefaultURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = openAIDefaultModel
	}

	return &OpenAI{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		model:    modelName,
		client:   client,
	}
}

// Name returns model.AIProviderOpenAI.
func (p *OpenAI) Name() model.AIProvider {
	return model.AIProviderOpenAI
}

// Classify sends prompt to the chat completions endpoint.
func (p *OpenAI) Classify(ctx context.Context, prompt string) (string, error) {
	reqBody := openAIRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxAnswerTokens,
		Temperature: openAITemperature,
	}

	respBody, err := postJSON(ctx, p.client, p.Name(), p.endpoint, map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}, reqBody)
	if err != nil {
		return "", err
	}

	var resp openAIResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Choices) == 0 {
		return fallbackAnswer, nil
	}
	return answerOr(resp.Choices[0].Message.Content), nil
}

type openAIRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
