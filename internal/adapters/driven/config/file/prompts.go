package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptExt is the file extension of prompt templates.
const promptExt = ".txt"

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to the
// built-in defaults from driven.DefaultPrompts.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. Cached entries remember the file's modification
// time and are re-read when the file changes.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	defaults  map[string]string
	cache     map[string]cachedFile
	initOnce  sync.Once
	initErr   error
}

// cachedFile is a file's content as of its modification time.
type cachedFile struct {
	content string
	modTime time.Time
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.docscope/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := defaultPromptDir()
		if err != nil {
			return nil, err
		}
		promptDir = dir
	}

	return &PromptStore{
		promptDir: promptDir,
		defaults:  driven.DefaultPrompts(),
		cache:     make(map[string]cachedFile),
	}, nil
}

func defaultPromptDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".docscope", "prompts"), nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns the cached value while the file is unchanged, otherwise re-reads it.
// Falls back to the built-in default if the file is missing or empty.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := s.defaults[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	path := filepath.Join(s.promptDir, name+promptExt)
	info, err := os.Stat(path)
	if err != nil {
		return s.fallback(name, err)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && cached.modTime.Equal(info.ModTime()) {
		return cached.content, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s.fallback(name, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return s.fallback(name, fmt.Errorf("prompt file %s is empty", path))
	}

	s.mu.Lock()
	s.cache[name] = cachedFile{content: prompt, modTime: info.ModTime()}
	s.mu.Unlock()

	return prompt, nil
}

func (s *PromptStore) fallback(name string, err error) (string, error) {
	if prompt, ok := s.defaults[name]; ok {
		return prompt, nil
	}
	return "", fmt.Errorf("load prompt %q: %w", name, err)
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]cachedFile)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Names returns the well-known prompt names in sorted order.
func (s *PromptStore) Names() []string {
	names := make([]string, 0, len(s.defaults))
	for name := range s.defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch drops cache entries as prompt files change until ctx is done.
// Long-running surfaces such as the MCP server call it so edits apply
// without a restart.
func (s *PromptStore) Watch(ctx context.Context) error {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return s.initErr
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prompt watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.promptDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.promptDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if name, changed := s.handleEvent(event); changed {
				logger.Debug("prompt %q changed on disk", name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompt watcher: %v", err)
		}
	}
}

// handleEvent invalidates the cache entry for a changed prompt file.
// It reports the prompt name and whether anything was invalidated.
func (s *PromptStore) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if filepath.Ext(base) != promptExt {
		return "", false
	}
	name := strings.TrimSuffix(base, promptExt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[name]; !ok {
		return name, false
	}
	delete(s.cache, name)
	return name, true
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range s.defaults {
		path := filepath.Join(s.promptDir, name+promptExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	var files strings.Builder
	for _, name := range s.Names() {
		files.WriteString("- `" + name + promptExt + "`\n")
	}

	content := `# docscope prompts

This directory contains the prompts docscope sends to the completion model
while retrieving context.

## Files

` + files.String() + `- ` + "`instructions.yaml`" + ` - optional per-task instructions placed before the context

## Customisation

Edit any file to customise LLM behaviour. Changes are picked up on the next
load. Delete a file to restore its default.

## Format Placeholders

Prompts use Go fmt placeholders:
- ` + "`%s`" + ` - String (e.g., the query or candidate list)
- ` + "`%d`" + ` - Integer (e.g., number of queries)

Keep the placeholders of a customised prompt in the same order.
`
	return os.WriteFile(path, []byte(content), 0600)
}
