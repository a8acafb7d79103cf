package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/adapters/driven/llm"
	"github.com/custodia-labs/docscope/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     error
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     domain.ErrConfiguration,
			errContains: "anthropic does not support embeddings",
		},
		{
			// Unknown providers are not valid, so IsConfigured() returns false.
			name: "unknown provider returns nil",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}

			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantNil  bool
	}{
		{name: "nil settings returns nil", settings: nil, wantNil: true},
		{name: "unconfigured settings returns nil", settings: &domain.LLMSettings{}, wantNil: true},
		{
			name: "ollama provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "llama3.2",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "gpt-4o-mini",
			},
		},
		{
			name: "anthropic provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
				Model:    "claude-3-5-haiku-latest",
			},
		},
		{
			name: "openai without key is not configured",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateAndValidate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	embedder, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  url,
	})
	assert.Nil(t, embedder)
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "docscope settings")

	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  url,
	})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestInit(t *testing.T) {
	t.Run("nil settings", func(t *testing.T) {
		result := Init(nil)
		assert.Nil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
		assert.False(t, result.FellBack)
	})

	t.Run("nothing configured", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		result := Init(&settings)
		assert.Nil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
		assert.Empty(t, result.Warnings)
	})

	t.Run("ollama configured wraps llm in rate limiter", func(t *testing.T) {
		server := newOllamaServer(t)
		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}
		settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}

		result := Init(&settings)
		defer result.Close()

		require.NotNil(t, result.EmbeddingService)
		require.NotNil(t, result.LLMService)
		assert.IsType(t, &llm.RateLimitedService{}, result.LLMService)
		assert.False(t, result.FellBack)
	})

	t.Run("unreachable services fall back with warnings", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: url}
		settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: url}

		result := Init(&settings)

		assert.Nil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
		assert.True(t, result.FellBack)
		assert.Len(t, result.Warnings, 2)
	})
}

func TestCreateOllamaEmbedding_Dimensions(t *testing.T) {
	known := createOllamaEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	})
	assert.Equal(t, domain.EmbeddingDimensions()["nomic-embed-text"], known.Dimensions())

	custom := createOllamaEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "custom-model-unknown",
	})
	assert.Equal(t, 768, custom.Dimensions())
}

func TestCreateOpenAI_MissingKey(t *testing.T) {
	embedder, err := createOpenAIEmbedding(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})
	assert.Nil(t, embedder)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	svc, err := createAnthropicLLM(&domain.LLMSettings{Provider: domain.AIProviderAnthropic})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

// newOllamaServer answers the /api/tags ping.
func newOllamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}
