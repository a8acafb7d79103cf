package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/normalisers/docx"
	"github.com/custodia-labs/docscope/internal/normalisers/eml"
	"github.com/custodia-labs/docscope/internal/normalisers/html"
	"github.com/custodia-labs/docscope/internal/normalisers/markdown"
	"github.com/custodia-labs/docscope/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes resolves uploads that arrive without a usable MIME type.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".docx":     docx.MIMEType,
	".eml":      "message/rfc822",
}

// Registry dispatches uploads to the highest-priority normaliser for their
// MIME type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]driven.Normaliser)}
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}

// Register adds a normaliser for each of its MIME types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range n.SupportedMIMETypes() {
		list := append(r.byType[t], n)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Priority() > list[j].Priority() })
		r.byType[t] = list
	}
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Normalise resolves the upload's MIME type and runs the best normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	mimeType := ResolveMIMEType(raw.MIMEType, raw.Name, raw.Content)

	r.mu.RLock()
	candidates := r.byType[mimeType]
	r.mu.RUnlock()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
	return candidates[0].Normalise(ctx, raw)
}

// ResolveMIMEType picks the media type for an upload. A declared type wins
// unless it is empty or generic, then the file extension, then content
// sniffing.
func ResolveMIMEType(declared, name string, content []byte) string {
	if mt := baseType(declared); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := extensionTypes[ext]; ok {
		return mt
	}
	if mt := baseType(mime.TypeByExtension(ext)); mt != "" {
		return mt
	}
	return baseType(http.DetectContentType(content))
}

// baseType strips parameters such as charset.
func baseType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(v, ";", 2)[0]))
	}
	return mt
}
