package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/auth"
	"github.com/ovaphlow/pitchfork/service-portfolio/internal/portfolio/entity"
)

// Messages shown to the Arabic-speaking frontend.
const (
	msgSiteNotFound      = "الموقع غير موجود"
	msgPortfolioNotFound = "البورتوفوليو غير موجود"
	msgDeleted           = "تم حذف البورتوفوليو بنجاح"
	msgServerError       = "خطأ في السيرفر"
)

// Handler exposes the portfolio endpoints and the public /v/{slug} view.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type PublishRequest struct {
	HTML   string `json:"html"`
	UserID string `json:"userId"`
	Slug   string `json:"slug"`
}

type PublishResponse struct {
	Success bool   `json:"success"`
	Slug    string `json:"slug"`
	Updated bool   `json:"updated,omitempty"`
	IsGuest bool   `json:"isGuest,omitempty"`
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !h.decode(w, r, &req) {
		return
	}
	claimed, err := parseOwner(req.UserID)
	if err != nil {
		h.fail(w, "publish", err, "")
		return
	}
	res, err := h.svc.Publish(r.Context(), h.access(r, claimed), req.HTML, req.Slug)
	if err != nil {
		h.fail(w, "publish", err, "")
		return
	}
	h.writeJSON(w, http.StatusOK, PublishResponse{Success: true, Slug: res.Slug, Updated: res.Updated, IsGuest: res.IsGuest})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Fetch(r.Context(), h.access(r, nil), r.PathValue("slug"))
	if err != nil {
		h.fail(w, "fetch portfolio", err, msgSiteNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "portfolio": p})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), h.access(r, nil), r.PathValue("slug")); err != nil {
		h.fail(w, "delete portfolio", err, msgPortfolioNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msgDeleted})
}

type RenameRequest struct {
	NewSlug string `json:"newSlug"`
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Rename(r.Context(), h.access(r, nil), r.PathValue("oldSlug"), req.NewSlug); err != nil {
		h.fail(w, "rename portfolio", err, "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Portfolio renamed successfully",
		"newSlug": req.NewSlug,
	})
}

func (h *Handler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByOwner(r.Context(), h.access(r, nil), r.PathValue("userId"))
	if err != nil {
		h.fail(w, "list portfolios", err, "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "portfolios": list})
}

// View serves the stored document as a page of its own.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Fetch(r.Context(), h.access(r, nil), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, msgSiteNotFound, http.StatusNotFound)
			return
		}
		h.logger.Warnw("view portfolio failed", "slug", r.PathValue("slug"), "err", err)
		http.Error(w, msgServerError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(p.HTML))
}

func (h *Handler) access(r *http.Request, claimed *uuid.UUID) entity.Access {
	token, _ := auth.BearerToken(r)
	return h.svc.Resolve(r.Context(), token, claimed)
}

func parseOwner(s string) (*uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperr.Validation("Invalid user id")
	}
	return &id, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid payload"})
		return false
	}
	return true
}

// fail maps err to a status. notFoundMsg replaces the message of a 404 when set.
func (h *Handler) fail(w http.ResponseWriter, op string, err error, notFoundMsg string) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	switch {
	case status == http.StatusNotFound && notFoundMsg != "":
		msg = notFoundMsg
	case status >= http.StatusInternalServerError:
		h.logger.Errorw(op+" failed", "err", err)
	}
	h.writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
