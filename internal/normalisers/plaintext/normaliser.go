// Package plaintext provides the fallback Normaliser for text uploads.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-rust",
		"text/x-java",
		"text/x-c",
		"text/x-c++",
		"text/x-shellscript",
		"text/x-sql",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/typescript",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise decodes the upload to UTF-8 text in NFC form.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Document: domain.Document{Content: content},
	}, nil
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Decode turns raw bytes into clean text. UTF-16 is recognised by its byte
// order mark; bytes that are not valid UTF-8 are read as Windows-1251, the
// usual encoding of legacy Russian documents. Line endings become "\n" and
// the result is NFC-normalised so offsets count composed characters.
func Decode(b []byte) (string, error) {
	var text string
	switch {
	case bytes.HasPrefix(b, utf8BOM):
		text = string(b[len(utf8BOM):])
	case bytes.HasPrefix(b, utf16LEBOM), bytes.HasPrefix(b, utf16BEBOM):
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("%w: utf-16: %w", domain.ErrInvalidInput, err)
		}
		text = string(decoded)
	case utf8.Valid(b):
		text = string(b)
	default:
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(b)
		if err != nil {
			return "", fmt.Errorf("%w: windows-1251: %w", domain.ErrInvalidInput, err)
		}
		text = string(decoded)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return norm.NFC.String(text), nil
}
