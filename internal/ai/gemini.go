package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nhle/mailhub/internal/model"
)

const (
	geminiDefaultURLFormat = "https://generativelanguage.googleapis.com/v1/models/%s:generateContent"
	geminiDefaultModel     = "gemini-pro"
)

// Gemini classifies with the generateContent API. The API key travels in
// the "key" query parameter.
type Gemini struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

// NewGemini creates a Gemini provider. An endpoint override replaces the
// whole model URL; the model override only affects the default URL.
func NewGemini(cfg model.AIConfig, client *http.Client) *Gemini {
	modelName := cfg.Model
	if modelName == "" {
		modelName = geminiDefaultModel
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(geminiDefaultURLFormat, modelName)
	}

	return &Gemini{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		model:    modelName,
		client:   client,
	}
}

// Name returns model.AIProviderGemini.
func (p *Gemini) Name() model.AIProvider {
	return model.AIProviderGemini
}

// Classify sends prompt as a single content part.
func (p *Gemini) Classify(ctx context.Context, prompt string) (string, error) {
	reqURL, err := withKey(p.endpoint, p.apiKey)
	if err != nil {
		return "", &ProviderError{Provider: p.Name(), Err: err}
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: maxAnswerTokens,
		},
	}

	respBody, err := postJSON(ctx, p.client, p.Name(), reqURL, nil, reqBody)
	if err != nil {
		return "", err
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil ||
		len(resp.Candidates) == 0 ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return fallbackAnswer, nil
	}
	return answerOr(resp.Candidates[0].Content.Parts[0].Text), nil
}

// withKey appends the API key as the "key" query parameter, keeping any
// query the endpoint already carries.
func withKey(endpoint, key string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
