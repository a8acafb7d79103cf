package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.LLMRequestsPerSecond, settings.LLMRequestsPerSecond)
	assert.Empty(t, settings.Embedding.Provider)
	assert.Empty(t, settings.LLM.Provider)
	assert.Empty(t, settings.LogFile)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("retrieval.chunk_mode", "percent")
	_ = store.Set("retrieval.chunk_percent", 15)
	_ = store.Set("retrieval.use_rerank", false)
	_ = store.Set("retrieval.rerank_min_score", 6.5)
	_ = store.Set("chunking.size", 800)

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, domain.ChunkModePercent, settings.Retrieval.ChunkMode)
	assert.InDelta(t, 15.0, settings.Retrieval.ChunkPercent, 1e-9)
	assert.False(t, settings.Retrieval.UseRerank)
	assert.InDelta(t, 6.5, settings.Retrieval.RerankMinScore, 1e-9)
	assert.Equal(t, 800, settings.Chunking.Size)
}

func TestSettingsService_Get_ZeroValuesAreKept(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("retrieval.min_chunks", 0)
	_ = store.Set("llm.requests_per_second", 0)

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, 0, settings.Retrieval.MinChunks)
	assert.Zero(t, settings.LLMRequestsPerSecond)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("retrieval.chunk_mode", "everything")
	_ = store.Set("embedding.provider", "invalid_provider")

	settings, err := NewSettingsService(store, nil).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.ChunkModeAdaptive, settings.Retrieval.ChunkMode)
	assert.Empty(t, settings.Embedding.Provider)
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic, Model: "claude-3-5-haiku-latest", APIKey: "sk-test"}
	settings.Retrieval.ChunkMode = domain.ChunkModeFixed
	settings.Retrieval.MaxChunks = 12
	settings.LogFile = "/tmp/docscope.log"

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.LLM, got.LLM)
	assert.Equal(t, settings.Retrieval, got.Retrieval)
	assert.Equal(t, "/tmp/docscope.log", got.LogFile)
}

func TestSettingsService_Save_BlankAPIKeyKeepsStoredKey(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.api_key", "sk-existing")
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "sk-existing", store.GetString("llm.api_key"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantErr   error
		wantModel string
		wantURL   string
	}{
		{"ollama default model", domain.AIProviderOllama, "", "", nil, "nomic-embed-text", "http://localhost:11434"},
		{"openai explicit model", domain.AIProviderOpenAI, "text-embedding-3-large", "sk", nil, "text-embedding-3-large", ""},
		{"openai without key", domain.AIProviderOpenAI, "", "", domain.ErrConfiguration, "", ""},
		{"anthropic has no embeddings", domain.AIProviderAnthropic, "", "sk", domain.ErrInvalidInput, "", ""},
		{"unknown provider", domain.AIProvider("cohere"), "", "", domain.ErrInvalidInput, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
	assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "gpt-4o", "sk"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	err = service.SetLLMProvider(domain.AIProviderAnthropic, "", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSettingsService_SetRetrieval(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	cfg := domain.DefaultRetrievalConfig()
	cfg.ChunkMode = domain.ChunkModePercent
	cfg.ChunkPercent = 30
	require.NoError(t, service.SetRetrieval(cfg))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, cfg, settings.Retrieval)

	cfg.ChunkPercent = 130
	assert.ErrorIs(t, service.SetRetrieval(cfg), domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
	}{
		{"defaults", nil, nil},
		{"overlap too large", map[string]any{"chunking.size": 100, "chunking.overlap": 100}, domain.ErrConfiguration},
		{"llm missing key", map[string]any{"llm.provider": "openai"}, domain.ErrConfiguration},
		{"embedding missing key", map[string]any{"embedding.provider": "openai"}, domain.ErrConfiguration},
		{"ollama needs no key", map[string]any{"llm.provider": "ollama"}, nil},
		{"negative weight", map[string]any{"retrieval.keyword_weight": -1.0}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			for k, v := range tt.values {
				require.NoError(t, store.Set(k, v))
			}

			err := NewSettingsService(store, nil).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("chunking.size", 900)
	_ = store.Set("chunking.overlap", 90)
	service := NewSettingsService(store, nil)

	cfg := service.GetPipelineConfig()

	assert.Equal(t, []string{"chunker", "embedder"}, cfg.Processors)
	assert.Equal(t, map[string]any{"chunk_size": 900, "overlap": 90}, cfg.GetProcessorConfig("chunker"))
}

func TestSettingsService_GetPipelineConfig_OverridesProcessors(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("pipeline.processors", []string{"chunker"})

	cfg := NewSettingsService(store, nil).GetPipelineConfig()

	assert.Equal(t, []string{"chunker"}, cfg.Processors)
}

// failingConfigStore fails writes to one key.
type failingConfigStore struct {
	driven.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if key == f.failOn {
		return errors.New("disk full")
	}
	return f.ConfigStore.Set(key, value)
}

func TestSettingsService_Save_PropagatesStoreError(t *testing.T) {
	store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: "retrieval.max_chunks"}
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	err := service.Save(&settings)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval.max_chunks")
}

func TestSettingsService_SetLLMProvider_StoreError(t *testing.T) {
	store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: "llm.provider"}
	service := NewSettingsService(store, nil)

	err := service.SetLLMProvider(domain.AIProviderOllama, "llama3.2", "")
	assert.Error(t, err)
}

// Mock AIConfigValidator for testing
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

func TestSettingsService_ValidateEmbeddingConfig_NilValidator(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	// With nil validator, should skip validation (no error)
	assert.NoError(t, service.ValidateEmbeddingConfig())
}

func TestSettingsService_ValidateEmbeddingConfig_Error(t *testing.T) {
	validator := &mockAIConfigValidator{embedErr: assert.AnError}
	service := NewSettingsService(memory.NewConfigStore(), validator)

	assert.Error(t, service.ValidateEmbeddingConfig())
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), &mockAIConfigValidator{})
	assert.NoError(t, service.ValidateLLMConfig())

	service = NewSettingsService(memory.NewConfigStore(), &mockAIConfigValidator{llmErr: assert.AnError})
	assert.Error(t, service.ValidateLLMConfig())
}
