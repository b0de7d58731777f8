package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"docdex/internal/config"
	"docdex/internal/metrics"
	"docdex/internal/model"
)

// Request carries one snippet's raw extraction into enrichment.
type Request struct {
	Code           string
	LanguageHint   string
	SectionTitle   string
	SectionContent string
	Context        string
}

// Enrichment is the structured result written back onto the snippet.
type Enrichment struct {
	Title       string
	Description string
	Language    string
	SnippetType model.SnippetType
	Functions   []string
	Imports     []string
	Keywords    []string
}

// Enricher wraps the Client with the process-wide concurrency cap, rate
// pacing, and retry policy. A nil Client (no API key) disables enrichment.
type Enricher struct {
	client      *Client
	model       string
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	maxAttempts int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewEnricher builds the Enricher from config. When the config carries no
// API key or model, Enrich falls back to parser output without any calls.
func NewEnricher(cfg config.LLMConfig, logger *slog.Logger) *Enricher {
	e := &Enricher{
		model:       cfg.Model,
		sem:         semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		maxAttempts: cfg.MaxAttempts,
		timeout:     time.Duration(cfg.RequestTimeoutMs) * time.Millisecond,
		logger:      logger,
	}
	if cfg.RateLimitPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}
	if cfg.Enabled() {
		e.client = NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model, e.timeout, cfg.ExtraParams)
	}
	return e
}

// Enabled reports whether the provider is configured.
func (e *Enricher) Enabled() bool {
	return e.client != nil
}

// Fallback synthesizes the enrichment used when the provider is disabled or
// permanently failing.
func Fallback(req Request) Enrichment {
	lang := req.LanguageHint
	if lang == "" {
		lang = "code"
	}
	title := lang + " snippet"
	if req.SectionTitle != "" {
		title = req.SectionTitle
	}
	return Enrichment{
		Title:       title,
		Language:    req.LanguageHint,
		SnippetType: model.SnippetTypeCode,
	}
}

// Enrich produces the snippet's title, description, classification, and
// symbol lists. Transient provider failures are retried with jittered
// backoff; a permanent failure returns the fallback, never an error.
func (e *Enricher) Enrich(ctx context.Context, req Request) Enrichment {
	if e.client == nil {
		return Fallback(req)
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return Fallback(req)
	}
	defer e.sem.Release(1)

	backoff := time.Second
	for attempt := 1; ; attempt++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return Fallback(req)
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		fields, err := e.client.Complete(callCtx, buildPrompt(req))
		cancel()
		if err == nil {
			metrics.RecordEnrichment(e.model, "success")
			return fromFields(req, fields)
		}

		if !retryable(err) || attempt >= e.maxAttempts || ctx.Err() != nil {
			e.logger.Warn("snippet enrichment failed, using fallback",
				"attempts", attempt, "error", err)
			metrics.RecordEnrichment(e.model, "fallback")
			return Fallback(req)
		}

		e.logger.Debug("retrying snippet enrichment", "attempt", attempt, "error", err)
		select {
		case <-time.After(jitter(backoff)):
		case <-ctx.Done():
			return Fallback(req)
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

// jitter spreads d by ±25% so concurrent retries fan out.
func jitter(d time.Duration) time.Duration {
	f := 0.75 + rand.Float64()*0.5
	return time.Duration(float64(d) * f)
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("Analyze this code snippet from programming documentation and return a JSON object with keys: ")
	sb.WriteString(`"title" (short, specific), "description" (one or two sentences), `)
	sb.WriteString(`"language", "snippet_type" (one of function, class, example, config, code), `)
	sb.WriteString(`"functions" (names defined or called), "imports", "keywords".`)
	if req.LanguageHint != "" {
		fmt.Fprintf(&sb, "\n\nLanguage hint: %s", req.LanguageHint)
	}
	if req.SectionTitle != "" {
		fmt.Fprintf(&sb, "\nSection: %s", req.SectionTitle)
	}
	if req.SectionContent != "" {
		fmt.Fprintf(&sb, "\nSection text:\n%s", req.SectionContent)
	}
	if req.Context != "" {
		fmt.Fprintf(&sb, "\nSurrounding context:\n%s", req.Context)
	}
	fmt.Fprintf(&sb, "\n\nCode:\n%s", req.Code)
	return sb.String()
}

// fromFields maps the provider's JSON object onto an Enrichment, falling
// back field by field when a key is missing or mistyped.
func fromFields(req Request, fields map[string]any) Enrichment {
	fb := Fallback(req)
	out := Enrichment{
		Title:       stringField(fields, "title", fb.Title),
		Description: stringField(fields, "description", ""),
		Language:    stringField(fields, "language", req.LanguageHint),
		Functions:   stringsField(fields, "functions"),
		Imports:     stringsField(fields, "imports"),
		Keywords:    stringsField(fields, "keywords"),
	}
	out.SnippetType = normalizeType(stringField(fields, "snippet_type", ""))
	return out
}

func normalizeType(v string) model.SnippetType {
	switch model.SnippetType(strings.ToLower(strings.TrimSpace(v))) {
	case model.SnippetTypeFunction:
		return model.SnippetTypeFunction
	case model.SnippetTypeClass:
		return model.SnippetTypeClass
	case model.SnippetTypeExample:
		return model.SnippetTypeExample
	case model.SnippetTypeConfig:
		return model.SnippetTypeConfig
	default:
		return model.SnippetTypeCode
	}
}

func stringField(fields map[string]any, key, fallback string) string {
	if v, ok := fields[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func stringsField(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
