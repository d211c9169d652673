package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-portfolio/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio/pkg/utilities"
)

var errEmptyResponse = errors.New("empty response")

// Result is the outcome of one orchestrated generation.
type Result struct {
	Text         string
	Provider     ProviderID
	FallbackInfo string
}

// Orchestrator tries providers in precedence order until one returns text.
type Orchestrator struct {
	providers map[ProviderID]Provider
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// NewOrchestrator registers the given adapters. timeout bounds each provider
// call when positive.
func NewOrchestrator(logger *zap.SugaredLogger, timeout time.Duration, providers ...Provider) *Orchestrator {
	m := make(map[ProviderID]Provider, len(providers))
	for _, p := range providers {
		m[p.ID()] = p
	}
	return &Orchestrator{providers: m, timeout: timeout, logger: logger}
}

// Configured reports whether the adapter for id has credentials.
func (o *Orchestrator) Configured(id ProviderID) bool {
	p, ok := o.providers[id]
	return ok && p.Configured()
}

// attemptOrder puts preferred first, then the rest in precedence order.
func attemptOrder(preferred ProviderID) []ProviderID {
	order := make([]ProviderID, 0, len(precedence))
	order = append(order, preferred)
	for _, id := range precedence {
		if id != preferred {
			order = append(order, id)
		}
	}
	return order
}

// Generate runs req against preferred, falling back through the remaining
// providers. Unconfigured providers are skipped without a call. When every
// provider fails the result is apperr.ErrAllProvidersExhausted.
func (o *Orchestrator) Generate(ctx context.Context, preferred ProviderID, req Request) (*Result, error) {
	runID := utilities.NewRunID()
	var (
		notices     []string
		unavailable []string
	)

	for _, id := range attemptOrder(preferred) {
		p, ok := o.providers[id]
		if !ok || !p.Configured() {
			o.logger.Debugw("provider skipped", "run", runID, "provider", id, "reason", "not configured")
			unavailable = append(unavailable, id.Label())
			continue
		}

		if len(unavailable) > 0 {
			notices = append(notices, fallbackNotice(unavailable, id))
			unavailable = nil
		}

		start := time.Now()
		text, err := o.call(ctx, p, req.For(id))
		if err == nil && req.Clean != nil {
			text = req.Clean(text)
		}
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("%s: %w", id, errEmptyResponse)
		}
		if err != nil {
			o.logger.Warnw("provider failed", "run", runID, "provider", id, "err", err,
				"duration_ms", time.Since(start).Milliseconds())
			unavailable = append(unavailable, id.Label())
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", apperr.ErrAllProvidersExhausted, ctx.Err())
			}
			continue
		}

		o.logger.Infow("provider succeeded", "run", runID, "provider", id, "preferred", preferred,
			"duration_ms", time.Since(start).Milliseconds(), "response_len", len(text))
		return &Result{Text: text, Provider: id, FallbackInfo: strings.Join(notices, " ")}, nil
	}

	o.logger.Errorw("all providers failed", "run", runID, "preferred", preferred)
	return nil, apperr.ErrAllProvidersExhausted
}

// fallbackNotice tells the caller which providers were passed over for next.
func fallbackNotice(skipped []string, next ProviderID) string {
	verb := "لم يعمل"
	if len(skipped) > 1 {
		verb = "لم يعملا"
	}
	return fmt.Sprintf("%s %s حالياً، تم التحويل تلقائياً إلى %s لضمان استمرارية الخدمة.",
		strings.Join(skipped, " و "), verb, next.Label())
}

func (o *Orchestrator) call(ctx context.Context, p Provider, req Request) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return p.Complete(ctx, req)
}
