package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsCmd_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0, len(settingsCmd.Commands()))
	for _, cmd := range settingsCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"show", "wizard", "retrieval", "embedding", "llm"}, commandNames)
}

func TestSettingsShowCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	svc := newMockSettingsService()
	svc.settings.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-1234567890abcdef",
	}
	settingsService = svc

	out, err := executeCommand("settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "[LLM]")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "[Retrieval]")
	assert.Contains(t, out, "Chunk mode: adaptive")
	assert.Contains(t, out, "Rerank: yes (min score 5.0)")
	assert.Contains(t, out, "[Chunking]")
	assert.Contains(t, out, "Chunk size: 1500")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShowCmd_ValidationWarning(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	svc := newMockSettingsService()
	settingsService = svc

	out, err := executeCommand("settings")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")

	svc.err = errMock
	_, err = executeCommand("settings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get settings")
}

func TestSettingsRetrievalCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	svc := newMockSettingsService()
	settingsService = svc

	t.Run("updates given fields only", func(t *testing.T) {
		out, err := executeCommand("settings", "retrieval", "--chunk-mode", "fixed", "--max-chunks", "12", "--rerank=false")

		require.NoError(t, err)
		assert.Contains(t, out, "chunk mode: fixed")
		assert.Equal(t, domain.ChunkModeFixed, svc.settings.Retrieval.ChunkMode)
		assert.Equal(t, 12, svc.settings.Retrieval.MaxChunks)
		assert.False(t, svc.settings.Retrieval.UseRerank)
		assert.InDelta(t, domain.DefaultRetrievalConfig().KeywordWeight, svc.settings.Retrieval.KeywordWeight, 1e-9)
	})

	t.Run("rejects invalid percent", func(t *testing.T) {
		_, err := executeCommand("settings", "retrieval", "--percent", "150")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, 12, svc.settings.Retrieval.MaxChunks)
	})
}

func TestSettingsCmds_ServiceNotConfigured(t *testing.T) {
	oldService := settingsService
	settingsService = nil
	defer func() { settingsService = oldService }()

	for _, sub := range []string{"show", "wizard", "retrieval", "embedding", "llm"} {
		t.Run(sub, func(t *testing.T) {
			_, err := executeCommand("settings", sub)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "settings service not configured")
		})
	}
}
