package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

const maxResponseBytes = 10 * 1024 * 1024

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type upstreamError struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *upstreamError `json:"error,omitempty"`
}

// ChatCompletionProvider speaks the OpenAI chat-completions envelope. Azure
// OpenAI and OpenRouter differ only in URL, auth header and model field.
type ChatCompletionProvider struct {
	id          ProviderID
	url         string
	model       string
	header      http.Header
	configured  bool
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewAzure builds the Azure OpenAI adapter.
func NewAzure(cfg config.AzureConfig, client *http.Client) *ChatCompletionProvider {
	h := http.Header{}
	h.Set("api-key", cfg.APIKey)
	return &ChatCompletionProvider{
		id:          Azure,
		url:         fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", cfg.Endpoint, cfg.Deployment, cfg.APIVersion),
		header:      h,
		configured:  cfg.Configured(),
		maxTokens:   2000,
		temperature: 0.7,
		httpClient:  orDefault(client),
	}
}

// NewOpenRouter builds the OpenRouter adapter.
func NewOpenRouter(cfg config.OpenRouterConfig, client *http.Client) *ChatCompletionProvider {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+cfg.APIKey)
	h.Set("HTTP-Referer", cfg.Referer)
	h.Set("X-Title", cfg.Title)
	return &ChatCompletionProvider{
		id:          OpenRouter,
		url:         cfg.BaseURL + "/chat/completions",
		model:       cfg.Model,
		header:      h,
		configured:  cfg.Configured(),
		maxTokens:   2000,
		temperature: 0.7,
		httpClient:  orDefault(client),
	}
}

func orDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func (p *ChatCompletionProvider) ID() ProviderID   { return p.id }
func (p *ChatCompletionProvider) Configured() bool { return p.configured }

// Complete sends one chat-completion request and returns the first choice's content.
func (p *ChatCompletionProvider) Complete(ctx context.Context, req Request) (string, error) {
	if !p.configured {
		return "", notConfigured(p.id)
	}

	body := chatRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = req.Temperature
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", p.id, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", p.id, err)
	}
	for k, v := range p.header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", p.id, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", p.id, err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := &apperr.UpstreamHTTPError{Service: string(p.id), Status: resp.StatusCode}
		if parseErr == nil && parsed.Error != nil {
			e.Message = parsed.Error.Message
		}
		return "", e
	}
	if parseErr != nil {
		return "", malformed(p.id, parseErr.Error())
	}
	if len(parsed.Choices) == 0 {
		detail := ""
		if parsed.Error != nil {
			detail = parsed.Error.Message
		}
		return "", malformed(p.id, detail)
	}
	return parsed.Choices[0].Message.Content, nil
}
