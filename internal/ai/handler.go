package ai

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/config"
)

// Handler exposes the AI endpoints.
type Handler struct {
	svc    *Service
	speech config.SpeechConfig
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, speech config.SpeechConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, speech: speech, logger: logger}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Status())
}

// Config hands the browser the speech-to-text settings.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"azureSpeechKey":    h.speech.Key,
		"azureSpeechRegion": h.speech.Region,
	})
}

type ChatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

type ChatResponse struct {
	Success      bool    `json:"success"`
	Response     string  `json:"response"`
	FallbackInfo *string `json:"fallbackInfo"`
	Provider     string  `json:"provider"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Chat(r.Context(), req.Message, req.Provider)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}
	h.writeJSON(w, http.StatusOK, ChatResponse{
		Success:      true,
		Response:     res.Text,
		FallbackInfo: notice(res.FallbackInfo),
		Provider:     string(res.Provider),
	})
}

type ExtractRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) ExtractData(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}
	data, err := h.svc.ExtractData(r.Context(), req.Prompt)
	if errors.Is(err, ErrExtractParse) {
		h.writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		h.fail(w, "extract data", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

type GenerateResponse struct {
	Success      bool    `json:"success"`
	HTML         string  `json:"html"`
	FallbackInfo *string `json:"fallbackInfo"`
	Provider     string  `json:"provider,omitempty"`
}

func (h *Handler) GeneratePortfolio(w http.ResponseWriter, r *http.Request) {
	var req PortfolioData
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.GeneratePortfolio(r.Context(), req)
	if err != nil {
		h.fail(w, "generate portfolio", err)
		return
	}
	h.writeJSON(w, http.StatusOK, GenerateResponse{
		Success:      true,
		HTML:         res.Text,
		FallbackInfo: notice(res.FallbackInfo),
		Provider:     string(res.Provider),
	})
}

type EnhanceRequest struct {
	HTML         string `json:"html"`
	DesignPrompt string `json:"designPrompt"`
}

func (h *Handler) EnhancePortfolio(w http.ResponseWriter, r *http.Request) {
	var req EnhanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Enhance(r.Context(), req.HTML, req.DesignPrompt)
	if err != nil {
		h.fail(w, "enhance portfolio", err)
		return
	}
	h.writeJSON(w, http.StatusOK, GenerateResponse{Success: true, HTML: res.Text, FallbackInfo: notice(res.FallbackInfo)})
}

// Generate keeps the chat-completion shaped answer older clients expect.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}
	html, err := h.svc.GenerateFromPrompt(r.Context(), req.Prompt)
	if err != nil {
		h.logger.Warnw("legacy generate failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"choices": []any{map[string]any{"message": map[string]string{"content": html}}},
	})
}

type EditRequest struct {
	HTML   string `json:"html"`
	Prompt string `json:"prompt"`
}

func (h *Handler) EditPortfolio(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !h.decode(w, r, &req) {
		return
	}
	html, err := h.svc.EditPortfolio(r.Context(), req.HTML, req.Prompt)
	if err != nil {
		h.fail(w, "edit portfolio", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "html": html})
}

func notice(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid payload"})
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warnw(op+" failed", "err", err)
	}
	msg := err.Error()
	if errors.Is(err, apperr.ErrAllProvidersExhausted) {
		msg = apperr.ErrAllProvidersExhausted.Error()
	}
	h.writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
