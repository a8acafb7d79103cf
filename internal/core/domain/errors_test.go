package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrDocumentNotReady", ErrDocumentNotReady},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrCollaboratorUnavailable", ErrCollaboratorUnavailable},
		{"ErrMalformedOutput", ErrMalformedOutput},
		{"ErrConfiguration", ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("rerank: %w", ErrMalformedOutput)

	assert.True(t, errors.Is(wrapped, ErrMalformedOutput))
	assert.False(t, errors.Is(wrapped, ErrCollaboratorUnavailable))
}

func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.False(t, errors.Is(ErrNotFound, ErrInvalidInput))
}
