package services

import (
	"fmt"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMRPS            = "llm.requests_per_second"
	keyChunkMode         = "retrieval.chunk_mode"
	keyMaxChunks         = "retrieval.max_chunks"
	keyChunkPercent      = "retrieval.chunk_percent"
	keyMinChunks         = "retrieval.min_chunks"
	keyMaxChunksLimit    = "retrieval.max_chunks_limit"
	keyMaxPercentLimit   = "retrieval.max_percent_limit"
	keyMinSimilarity     = "retrieval.min_similarity"
	keyKeywordWeight     = "retrieval.keyword_weight"
	keySemanticWeight    = "retrieval.semantic_weight"
	keyUseRerank         = "retrieval.use_rerank"
	keyRerankMinScore    = "retrieval.rerank_min_score"
	keyChunkingSize      = "chunking.size"
	keyChunkingOverlap   = "chunking.overlap"
	keyLogFile           = "logging.file"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	r := defaults.Retrieval

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Retrieval: domain.RetrievalConfig{
			ChunkMode:       s.getChunkMode(r.ChunkMode),
			MaxChunks:       s.getInt(keyMaxChunks, r.MaxChunks),
			ChunkPercent:    s.getFloat(keyChunkPercent, r.ChunkPercent),
			MinChunks:       s.getInt(keyMinChunks, r.MinChunks),
			MaxChunksLimit:  s.getInt(keyMaxChunksLimit, r.MaxChunksLimit),
			MaxPercentLimit: s.getFloat(keyMaxPercentLimit, r.MaxPercentLimit),
			MinSimilarity:   s.getFloat(keyMinSimilarity, r.MinSimilarity),
			KeywordWeight:   s.getFloat(keyKeywordWeight, r.KeywordWeight),
			SemanticWeight:  s.getFloat(keySemanticWeight, r.SemanticWeight),
			UseRerank:       s.getBool(keyUseRerank, r.UseRerank),
			RerankMinScore:  s.getFloat(keyRerankMinScore, r.RerankMinScore),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkingSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkingOverlap, defaults.Chunking.Overlap),
		},
		LLMRequestsPerSecond: s.getFloat(keyLLMRPS, defaults.LLMRequestsPerSecond),
		LogFile:              s.configStore.GetString(keyLogFile),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMRPS, settings.LLMRequestsPerSecond},
		{keyChunkingSize, settings.Chunking.Size},
		{keyChunkingOverlap, settings.Chunking.Overlap},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so a blank form never erases them.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.LogFile != "" {
		if err := s.configStore.Set(keyLogFile, settings.LogFile); err != nil {
			return fmt.Errorf("save logging file: %w", err)
		}
	}

	return s.saveRetrieval(settings.Retrieval)
}

func (s *SettingsService) saveRetrieval(r domain.RetrievalConfig) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkMode, string(r.ChunkMode)},
		{keyMaxChunks, r.MaxChunks},
		{keyChunkPercent, r.ChunkPercent},
		{keyMinChunks, r.MinChunks},
		{keyMaxChunksLimit, r.MaxChunksLimit},
		{keyMaxPercentLimit, r.MaxPercentLimit},
		{keyMinSimilarity, r.MinSimilarity},
		{keyKeywordWeight, r.KeywordWeight},
		{keySemanticWeight, r.SemanticWeight},
		{keyUseRerank, r.UseRerank},
		{keyRerankMinScore, r.RerankMinScore},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetRetrieval replaces the default retrieval configuration.
func (s *SettingsService) SetRetrieval(cfg domain.RetrievalConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.saveRetrieval(cfg)
}

// Validate checks that the stored settings are usable.
// Unconfigured AI providers are valid; only half-configured ones are not.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Retrieval.Validate(); err != nil {
		return err
	}
	if settings.Chunking.Size <= 0 || settings.Chunking.Overlap < 0 ||
		settings.Chunking.Overlap >= settings.Chunking.Size {
		return fmt.Errorf("%w: chunking overlap must be below chunk size", domain.ErrConfiguration)
	}
	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is missing credentials",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s is missing credentials",
			domain.ErrConfiguration, settings.LLM.Provider)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Chunking settings feed the chunker; "pipeline.processors" overrides the order.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		cfg.Processors = processors
	}

	settings, err := s.Get()
	if err == nil {
		cfg.ProcessorConfigs["chunker"] = map[string]any{
			"chunk_size": settings.Chunking.Size,
			"overlap":    settings.Chunking.Overlap,
		}
	}

	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getChunkMode(defaultVal domain.ChunkMode) domain.ChunkMode {
	mode := domain.ChunkMode(s.configStore.GetString(keyChunkMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
