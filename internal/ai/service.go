package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

// ErrExtractParse marks an extraction answer that was not valid JSON.
var ErrExtractParse = errors.New("failed to parse extracted data")

// Status describes which providers are configured and which models they run.
type Status struct {
	Gemini     bool              `json:"gemini"`
	Azure      bool              `json:"azure"`
	OpenRouter bool              `json:"openrouter"`
	Models     map[string]string `json:"models"`
}

// Service implements the AI endpoints on top of the orchestrator.
type Service struct {
	orch   *Orchestrator
	models map[string]string
	logger *zap.SugaredLogger
}

func NewService(orch *Orchestrator, cfg config.AIConfig, logger *zap.SugaredLogger) *Service {
	return &Service{
		orch: orch,
		models: map[string]string{
			string(Gemini):     fmt.Sprintf("Gemini (%s)", cfg.Gemini.Model),
			string(Azure):      fmt.Sprintf("Azure OpenAI (%s)", cfg.Azure.Deployment),
			string(OpenRouter): fmt.Sprintf("OpenRouter (%s)", cfg.OpenRouter.Model),
		},
		logger: logger,
	}
}

func (s *Service) Status() Status {
	return Status{
		Gemini:     s.orch.Configured(Gemini),
		Azure:      s.orch.Configured(Azure),
		OpenRouter: s.orch.Configured(OpenRouter),
		Models:     s.models,
	}
}

// Chat answers a free-form message; the preferred provider defaults to Azure.
func (s *Service) Chat(ctx context.Context, message, provider string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Validation("Message is required")
	}
	pref, err := ParseProvider(provider, Azure)
	if err != nil {
		return nil, err
	}
	return s.orch.Generate(ctx, pref, Request{Prompt: message, System: chatSystem})
}

// ExtractData turns free text into the structured portfolio fields.
func (s *Service) ExtractData(ctx context.Context, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("Prompt is required")
	}
	res, err := s.orch.Generate(ctx, Gemini, Request{Prompt: extractPrompt(text), System: extractSystem, Clean: StripFences})
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(res.Text), &data); err != nil {
		s.logger.Debugw("extraction answer is not JSON", "provider", res.Provider, "err", err)
		return nil, ErrExtractParse
	}
	return data, nil
}

// GeneratePortfolio synthesizes a full HTML document; the preferred provider
// defaults to OpenRouter, which gets a larger output budget than its default.
func (s *Service) GeneratePortfolio(ctx context.Context, data PortfolioData) (*Result, error) {
	pref, err := ParseProvider(data.Provider, OpenRouter)
	if err != nil {
		return nil, err
	}
	return s.orch.Generate(ctx, pref, Request{
		Prompt:       portfolioPrompt(data),
		System:       designerSystem,
		MaxTokensFor: map[ProviderID]int{OpenRouter: 8000},
		Clean:        StripFences,
	})
}

// Enhance restyles an existing document.
func (s *Service) Enhance(ctx context.Context, html, designPrompt string) (*Result, error) {
	if strings.TrimSpace(html) == "" {
		return nil, apperr.Validation("HTML code is required")
	}
	return s.orch.Generate(ctx, Gemini, Request{Prompt: enhancePrompt(html, designPrompt), System: designerSystem, Clean: StripFences})
}

// GenerateFromPrompt builds a portfolio from a free-text description.
func (s *Service) GenerateFromPrompt(ctx context.Context, details string) (string, error) {
	res, err := s.orch.Generate(ctx, Gemini, Request{Prompt: legacyPrompt(details), System: legacySystem, Clean: StripFences})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// EditPortfolio applies one instruction to an existing document. An answer
// without a document marker is logged and still returned as is.
func (s *Service) EditPortfolio(ctx context.Context, html, instruction string) (string, error) {
	if strings.TrimSpace(html) == "" || strings.TrimSpace(instruction) == "" {
		return "", apperr.Validation("HTML and prompt are required")
	}
	res, err := s.orch.Generate(ctx, Gemini, Request{Prompt: editPrompt(html, instruction), System: editSystem, Clean: ExtractDocument})
	if err != nil {
		return "", err
	}
	edited := res.Text
	if !LooksLikeDocument(edited) {
		s.logger.Warnw("edited html has no document marker, forwarding unchanged",
			"provider", res.Provider, "len", len(edited))
	}
	return edited, nil
}
