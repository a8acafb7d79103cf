// Package llm holds decorators shared by the LLM provider adapters.
package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Ensure RateLimitedService implements the interface.
var _ driven.LLMService = (*RateLimitedService)(nil)

// Default rate limiting values.
const (
	DefaultRequestsPerSecond = 2.0
	DefaultBurstSize         = 4
	DefaultRetryAfter        = 10 * time.Second
)

// RateLimitConfig holds rate limiting configuration for a provider.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit. Zero disables limiting.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int

	// RetryAfter is the pause applied after the provider answers 429.
	RetryAfter time.Duration
}

// RateLimitedService wraps an LLMService with a token bucket and a pause
// after the provider reports too many requests.
type RateLimitedService struct {
	inner      driven.LLMService
	limiter    *rate.Limiter
	retryAfter time.Duration

	mu      sync.Mutex
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimited wraps inner. A nil inner is returned as nil so callers keep
// the "no LLM configured" path.
func NewRateLimited(inner driven.LLMService, cfg RateLimitConfig) driven.LLMService {
	if inner == nil {
		return nil
	}
	if cfg.RequestsPerSecond <= 0 {
		return inner
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	return &RateLimitedService{
		inner:      inner,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		retryAfter: cfg.RetryAfter,
		now:        time.Now,
	}
}

// Generate waits for a token, then delegates.
func (s *RateLimitedService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.inner.Generate(ctx, prompt, opts)
	if err != nil && isRateLimitError(err) {
		logger.Warn("%s: rate limited, pausing for %v", s.inner.ModelName(), s.retryAfter)
		s.recordRateLimit()
	}
	return out, err
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any pause set after a 429 response.
func (s *RateLimitedService) Wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if wait := retryAt.Sub(s.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}

func (s *RateLimitedService) recordRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = s.now().Add(s.retryAfter)
}

// isRateLimitError reports whether a provider error carries HTTP 429.
func isRateLimitError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status 429") || strings.Contains(msg, "rate limit")
}

// ModelName returns the wrapped model name.
func (s *RateLimitedService) ModelName() string {
	return s.inner.ModelName()
}

// Ping delegates without consuming a token.
func (s *RateLimitedService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the wrapped service.
func (s *RateLimitedService) Close() error {
	return s.inner.Close()
}
