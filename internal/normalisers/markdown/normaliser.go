package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a markdown document to plain text. Heading lines are
// kept with their markers so the chunker can detect numbered headings.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text, err := plaintext.Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Document: domain.Document{Content: Clean(text)},
	}, nil
}

// Pre-compiled regular expressions for markdown cleanup.
var (
	fenceLine     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	refLinks      = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:[ \t]+\S+.*$`)
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	bold          = regexp.MustCompile(`(\*\*|__)([^*_]+?)(\*\*|__)`)
	italic        = regexp.MustCompile(`(^|[\s(])[*_]([^*_\s][^*_]*?)[*_]([\s).,;:!?]|$)`)
	blockquote    = regexp.MustCompile(`(?m)^>\s?`)
	horizontal    = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	bullets       = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	tableRule     = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*\n`)
	htmlTags      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Clean strips markdown syntax while keeping the text, heading lines and
// paragraph breaks. Code inside fences is kept without the fence lines.
func Clean(content string) string {
	content = fenceLine.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = refLinks.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = bold.ReplaceAllString(content, "$2")
	content = italic.ReplaceAllString(content, "$1$2$3")
	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = bullets.ReplaceAllString(content, "$1- ")
	content = htmlTags.ReplaceAllString(content, "")
	content = trailingSpace.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
