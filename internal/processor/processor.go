package processor

import (
	"context"
	"errors"
	"log/slog"

	"flowgate/internal/cache"
	"flowgate/internal/ledger"
	"flowgate/internal/llm"
	"flowgate/internal/privacy"
	"flowgate/internal/prompt"
)

// Options configure routing and privacy behavior.
type Options struct {
	PrivacyEnabled    bool
	ModelFast         string
	ModelSmart        string
	DeepThreshold     int
	LongTextThreshold int
	UserSystemPrompt  string
}

// Processor wires the pipeline components together. All collaborators are
// injected; a Processor holds no global state.
type Processor struct {
	scanner *privacy.Scanner
	terms   *privacy.TermStore
	cache   *cache.Store
	ledger  *ledger.Ledger
	gen     llm.Generator
	opts    Options
	log     *slog.Logger
}

func New(scanner *privacy.Scanner, terms *privacy.TermStore, cacheStore *cache.Store,
	auditLedger *ledger.Ledger, gen llm.Generator, opts Options, log *slog.Logger) *Processor {
	return &Processor{
		scanner: scanner,
		terms:   terms,
		cache:   cacheStore,
		ledger:  auditLedger,
		gen:     gen,
		opts:    opts,
		log:     log,
	}
}

// Process transforms text at the given intensity. Exactly one of the two
// return values is non-nil.
func (p *Processor) Process(ctx context.Context, text string, intensity int, userID string) (*Result, *Failure) {
	if userID == "" {
		userID = "anonymous"
	}

	masked := text
	var mapping map[string]string

	if p.opts.PrivacyEnabled {
		// The matched keyword stays out of logs and the caller-facing
		// message: surfacing it would leak the content we refused to send.
		if blocked, _ := p.scanner.CheckDenyList(text); blocked {
			p.log.Warn("request blocked by deny list", "text", cache.SanitizeLog(text))
			return nil, &Failure{
				Kind:    KindPIIBlocked,
				Message: "input contains confidential content that must not leave this machine",
				Action:  "remove the confidential wording and retry",
			}
		}
		masked, mapping = p.scanner.Mask(text, p.customTerms(ctx))
	}

	model := selectModel(masked, intensity, p.opts)
	promptCfg := prompt.For(intensity, p.opts.UserSystemPrompt)

	resp, err := p.gen.Generate(ctx, llm.Request{
		Text:         masked,
		SystemPrompt: promptCfg.SystemPrompt,
		Temperature:  promptCfg.Temperature,
		Model:        model,
	})
	if err != nil {
		return p.handleGenerateError(ctx, text, intensity, err)
	}

	final := resp.Text
	if len(mapping) > 0 {
		final = privacy.Unmask(final, mapping)
	}

	p.appendAudit(ctx, userID, masked, final, intensity, model)
	p.storeResult(ctx, text, intensity, final)

	p.log.Info("processed",
		"text", cache.SanitizeLog(text), "intensity", intensity, "model", model)
	return &Result{Text: final, Model: model, Intensity: intensity, FromCache: false}, nil
}

// QueueFunc adapts Process for the job queue's drain loop.
func (p *Processor) QueueFunc() func(ctx context.Context, text string, intensity int) (string, error) {
	return func(ctx context.Context, text string, intensity int) (string, error) {
		result, failure := p.Process(ctx, text, intensity, "queue")
		if failure != nil {
			return "", failure
		}
		return result.Text, nil
	}
}

// WarmupFunc adapts Process for cache warmup. Warmup stores results
// itself, so cache hits and rewrites flow through a direct call.
func (p *Processor) WarmupFunc() cache.ProcessFunc {
	return func(ctx context.Context, text string, intensity int) (string, error) {
		result, failure := p.Process(ctx, text, intensity, "warmup")
		if failure != nil {
			return "", failure
		}
		return result.Text, nil
	}
}

// customTerms loads user vocabulary; failures degrade to no custom terms.
func (p *Processor) customTerms(ctx context.Context) []string {
	if p.terms == nil {
		return nil
	}
	terms, err := p.terms.List(ctx)
	if err != nil {
		p.log.Warn("loading custom vocabulary failed", "error", err)
		return nil
	}
	values := make([]string, 0, len(terms))
	for _, t := range terms {
		values = append(values, t.Term)
	}
	return values
}

// handleGenerateError classifies an upstream failure and, for the classes
// where stale data beats no data, tries the cache before giving up.
func (p *Processor) handleGenerateError(ctx context.Context, text string, intensity int, err error) (*Result, *Failure) {
	var safetyErr *llm.SafetyError
	var apiErr *llm.APIError

	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		if hit := p.cacheFallback(ctx, text, intensity); hit != nil {
			return hit, nil
		}
		return nil, &Failure{
			Kind:    KindAPINotConfigured,
			Message: "generation API key is not configured",
			Action:  "set GEMINI_API_KEY and retry",
		}

	case errors.As(err, &safetyErr):
		// Not retried and never cached: the upstream rejected the content
		// itself.
		p.log.Warn("generation blocked by safety filter", "reason", safetyErr.Reason)
		return nil, &Failure{
			Kind:    KindSafetyBlocked,
			Message: "the generation API declined this input",
			Action:  "revise the input text and retry",
		}

	case errors.As(err, &apiErr):
		p.log.Warn("generation API failed", "status", apiErr.StatusCode, "error", err)
		if hit := p.cacheFallback(ctx, text, intensity); hit != nil {
			return hit, nil
		}
		return nil, &Failure{
			Kind:    KindAPIError,
			Message: "the generation API is unavailable",
			Action:  "retry later or enqueue the request",
		}

	default:
		p.log.Error("unexpected processing failure", "error", err)
		if hit := p.cacheFallback(ctx, text, intensity); hit != nil {
			return hit, nil
		}
		return nil, &Failure{
			Kind:    KindInternalError,
			Message: "an internal error occurred",
			Action:  "wait a moment and retry",
		}
	}
}

func (p *Processor) cacheFallback(ctx context.Context, text string, intensity int) *Result {
	hit, err := p.cache.Lookup(ctx, text, intensity)
	if err != nil {
		p.log.Warn("cache fallback lookup failed", "error", err)
		return nil
	}
	if hit == nil {
		return nil
	}
	return &Result{Text: hit.Result, Intensity: intensity, FromCache: true}
}

// appendAudit records the transformation; audit failures never block the
// response.
func (p *Processor) appendAudit(ctx context.Context, userID, maskedInput, output string, intensity int, model string) {
	_, err := p.ledger.Append(ctx, ledger.Entry{
		UserID:      userID,
		ActionType:  "AI_PROCESS",
		TargetTable: "flow_requests",
		AIModel:     model,
		Before:      map[string]any{"input": maskedInput, "intensity": intensity},
		After:       map[string]any{"output": output},
	})
	if err != nil {
		p.log.Warn("audit logging failed", "error", err)
	}
}

// storeResult populates the cache; failures are logged and ignored.
func (p *Processor) storeResult(ctx context.Context, text string, intensity int, result string) {
	if err := p.cache.Put(ctx, text, intensity, result); err != nil {
		p.log.Warn("caching result failed", "error", err)
		return
	}
	if _, err := p.cache.EnforceCapacity(ctx); err != nil {
		p.log.Warn("cache capacity enforcement failed", "error", err)
	}
}

// selectModel routes between the fast and the capable model. Pure.
func selectModel(maskedText string, intensity int, opts Options) string {
	if intensity > opts.DeepThreshold {
		return opts.ModelSmart
	}
	if len(maskedText) > opts.LongTextThreshold && intensity >= opts.DeepThreshold {
		return opts.ModelSmart
	}
	return opts.ModelFast
}
