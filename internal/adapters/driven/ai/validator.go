package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings before they are saved. A provider
// that cannot be built returns domain.ErrConfiguration; one that is built but
// does not answer a ping returns domain.ErrCollaboratorUnavailable.
type ConfigValidator struct {
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPingTimeout bounds each provider ping.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding builds the embedding service and pings it. Unconfigured
// settings are valid: retrieval then runs on keywords alone.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	return v.ping(svc.Ping, "embedding", config.Provider)
}

// ValidateLLM builds the completion service and pings it. Unconfigured
// settings are valid: enhancement stages then use their fallbacks.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(config)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	return v.ping(svc.Ping, "llm", config.Provider)
}

func (v *ConfigValidator) ping(fn func(context.Context) error, kind string, provider domain.AIProvider) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		return fmt.Errorf("%w: %s provider %s: %w", domain.ErrCollaboratorUnavailable, kind, provider, err)
	}
	return nil
}
