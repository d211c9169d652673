package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

// GeminiProvider calls generateContent through the GenAI SDK.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini builds the Gemini adapter. Without an API key the adapter reports
// not configured and never creates an SDK client.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, httpClient *http.Client) (*GeminiProvider, error) {
	g := &GeminiProvider{model: cfg.Model}
	if !cfg.Configured() {
		return g, nil
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiProvider) ID() ProviderID   { return Gemini }
func (g *GeminiProvider) Configured() bool { return g.client != nil }

func (g *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", notConfigured(Gemini)
	}

	temp := float32(0.2)
	if req.Temperature > 0 {
		temp = float32(req.Temperature)
	}
	maxTokens := int32(20480)
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temp),
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", fromGenAIError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", malformed(Gemini, "no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// fromGenAIError lifts SDK API errors into the shared upstream error type.
func fromGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &apperr.UpstreamHTTPError{Service: string(Gemini), Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &apperr.UpstreamHTTPError{Service: string(Gemini), Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("%s: request failed: %w", Gemini, err)
}
