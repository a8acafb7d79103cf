package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// DefaultEnhancementTimeout bounds every optional LLM call.
const DefaultEnhancementTimeout = 20 * time.Second

// Timeouts bounds collaborator calls made while answering one request.
type Timeouts struct {
	// Enhancement bounds each optional LLM call (expansion, rerank, intent).
	Enhancement time.Duration

	// Embedding bounds each query embedding call.
	Embedding time.Duration
}

// DefaultTimeouts returns the standard per-call bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Enhancement: DefaultEnhancementTimeout,
		Embedding:   DefaultEnhancementTimeout,
	}
}

// completer funnels every LLM call through one place: prompt lookup,
// per-call timeout and error classification.
type completer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	timeout time.Duration
}

func newCompleter(llm driven.LLMService, prompts driven.PromptStore, timeout time.Duration) *completer {
	if timeout <= 0 {
		timeout = DefaultEnhancementTimeout
	}
	return &completer{llm: llm, prompts: prompts, timeout: timeout}
}

// available reports whether a completion provider is configured.
func (c *completer) available() bool {
	return c != nil && c.llm != nil
}

// template returns the named prompt template, preferring the store.
func (c *completer) template(name string) string {
	if c.prompts != nil {
		if tmpl, err := c.prompts.Load(name); err == nil && tmpl != "" {
			return tmpl
		}
	}
	return driven.DefaultPrompts()[name]
}

// complete renders the named prompt and asks the LLM, bounded by the
// enhancement timeout. Errors wrap ErrLLMUnavailable when no provider is
// configured and ErrCollaboratorUnavailable when the call fails.
func (c *completer) complete(
	ctx context.Context, name string, opts driven.GenerateOptions, args ...any,
) (string, error) {
	if !c.available() {
		return "", domain.ErrLLMUnavailable
	}

	prompt := fmt.Sprintf(c.template(name), args...)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.llm.Generate(callCtx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrCollaboratorUnavailable, name, err)
	}
	logger.Debug("LLM %s answered in %v (%d chars)", name, time.Since(start).Round(time.Millisecond), len(text))

	return strings.TrimSpace(text), nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = ""
	}
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// extractJSON finds the outermost JSON value delimited by openCh and closeCh in
// an LLM answer, tolerating fences and surrounding prose.
func extractJSON(text string, openCh, closeCh byte) (gjson.Result, error) {
	text = stripFences(text)
	start := strings.IndexByte(text, openCh)
	end := strings.LastIndexByte(text, closeCh)
	if start < 0 || end <= start {
		return gjson.Result{}, fmt.Errorf("%w: no JSON %c%c in %q", domain.ErrMalformedOutput, openCh, closeCh, preview(text))
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON %q", domain.ErrMalformedOutput, preview(raw))
	}
	return gjson.Parse(raw), nil
}

// parseJSONArray extracts a JSON array from an LLM answer.
func parseJSONArray(text string) ([]gjson.Result, error) {
	res, err := extractJSON(text, '[', ']')
	if err != nil {
		return nil, err
	}
	return res.Array(), nil
}

// parseJSONObject extracts a JSON object from an LLM answer.
func parseJSONObject(text string) (gjson.Result, error) {
	return extractJSON(text, '{', '}')
}

func preview(text string) string {
	return domain.Preview(text, 80)
}
