package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/aptoseidon/aptoseidon/internal/ailink/content"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultInputBudget = 3000
	truncationSuffix   = "...[TRUNCATED]"
	retryBaseDelay     = 2 * time.Second
)

// Service coordinates prompt lookup, provider selection, pacing and driver
// execution for single-turn completions.
type Service struct {
	Providers *Registry
	Prompts   prompt.Registry

	limiter     *rate.Limiter
	inputBudget int
	timeout     time.Duration
	maxRetries  int
	sleep       func(context.Context, time.Duration) error
}

// NewService builds a Service from cfg and a prompt registry.
func NewService(cfg Config, prompts prompt.Registry) *Service {
	budget := cfg.InputBudget
	if budget <= 0 {
		budget = defaultInputBudget
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(cfg.RatePerMinute / 60.0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Service{
		Providers:   NewRegistry(cfg),
		Prompts:     prompts,
		limiter:     rate.NewLimiter(limit, burst),
		inputBudget: budget,
		timeout:     timeout,
		maxRetries:  cfg.MaxRetries,
		sleep:       sleepContext,
	}
}

// CompleteJSON runs a JSON-format prompt and returns the raw JSON object text.
// Markdown code fences around the object are removed.
func (s *Service) CompleteJSON(ctx context.Context, slug, userContent string) (string, error) {
	raw, err := s.complete(ctx, slug, userContent, driver.FormatJSON)
	if err != nil {
		return "", err
	}
	cleaned := StripCodeFence(raw)
	if !json.Valid([]byte(cleaned)) {
		return "", &RawResponseError{Err: errors.New("response is not valid JSON"), Raw: json.RawMessage(raw)}
	}
	return cleaned, nil
}

// CompleteText runs a text-format prompt and returns the trimmed response.
func (s *Service) CompleteText(ctx context.Context, slug, userContent string) (string, error) {
	raw, err := s.complete(ctx, slug, userContent, driver.FormatText)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (s *Service) complete(ctx context.Context, slug, userContent, format string) (string, error) {
	if s == nil || s.Providers == nil {
		return "", errors.New("ailink provider registry not configured")
	}
	if s.Prompts == nil {
		return "", errors.New("ailink prompt registry not configured")
	}

	promptDef, err := s.Prompts.Get(slug)
	if err != nil {
		return "", err
	}

	resolved, err := s.Providers.Resolve(slug, promptDef, "")
	if err != nil {
		return "", err
	}

	req := &driver.Request{
		Model: resolved.Model,
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, promptDef.Config.SystemTemplate),
			content.TextMessage(content.RoleUser, TruncateInput(userContent, s.inputBudget)),
		},
		Temperature: promptDef.Config.Response.Temperature,
		MaxTokens:   promptDef.Config.Response.MaxTokens,
		PromptSlug:  promptDef.Config.Slug,
	}
	if format == driver.FormatJSON {
		req.ResponseFormat = &driver.ResponseFormat{Type: driver.FormatJSON}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", mapProviderError(err)
		}

		resp, err := resolved.Driver.Complete(ctx, req)
		if err != nil {
			var perr *driver.ProviderError
			if errors.As(err, &perr) && perr.RateLimited() && attempt < s.maxRetries {
				if serr := s.sleep(ctx, retryBaseDelay*time.Duration(1<<attempt)); serr != nil {
					return "", mapProviderError(serr)
				}
				continue
			}
			return "", mapProviderError(err)
		}

		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", errors.New("empty response content")
		}
		return text, nil
	}
}

// TruncateInput caps s at budget characters, appending a marker when cut.
func TruncateInput(s string, budget int) string {
	if budget <= 0 || utf8.RuneCountInString(s) <= budget {
		return s
	}
	runes := []rune(s)
	return string(runes[:budget]) + truncationSuffix
}

// StripCodeFence removes a surrounding ```json fence that some models emit
// even in JSON mode.
func StripCodeFence(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
