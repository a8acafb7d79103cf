package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Ensure InstructionStore implements the interface.
var _ driven.InstructionStore = (*InstructionStore)(nil)

// InstructionsFile is the name of the task instruction overrides file.
const InstructionsFile = "instructions.yaml"

// InstructionStore reads per-task instruction overrides from a YAML file
// mapping task names to text:
//
//	summarize: "Summarise every chapter in two sentences."
//	search: ""
//
// Tasks absent from the file keep their defaults. The parsed file is cached
// until its modification time changes.
type InstructionStore struct {
	mu      sync.RWMutex
	path    string
	cached  map[domain.Task]string
	modTime time.Time
}

// NewInstructionStore creates a store reading instructions.yaml from dir.
// If dir is empty, defaults to ~/.docscope/prompts/.
func NewInstructionStore(dir string) (*InstructionStore, error) {
	if dir == "" {
		d, err := defaultPromptDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return &InstructionStore{path: filepath.Join(dir, InstructionsFile)}, nil
}

// Path returns the instructions file path.
func (s *InstructionStore) Path() string {
	return s.path
}

// Instructions returns the instruction for every task. A missing file yields
// the defaults. A malformed file yields the defaults and an ErrConfiguration
// error so the caller can report it.
func (s *InstructionStore) Instructions() (map[domain.Task]string, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DefaultTaskInstructions(), nil
	}
	if err != nil {
		return domain.DefaultTaskInstructions(), fmt.Errorf("%w: stat %s: %w", domain.ErrConfiguration, s.path, err)
	}

	s.mu.RLock()
	if s.cached != nil && s.modTime.Equal(info.ModTime()) {
		out := copyInstructions(s.cached)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.DefaultTaskInstructions(), fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, s.path, err)
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return domain.DefaultTaskInstructions(), fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, s.path, err)
	}

	merged := domain.DefaultTaskInstructions()
	for name, text := range overrides {
		task := domain.Task(name)
		if !task.IsValid() {
			logger.Warn("instructions: ignoring unknown task %q in %s", name, s.path)
			continue
		}
		merged[task] = text
	}

	s.mu.Lock()
	s.cached = merged
	s.modTime = info.ModTime()
	s.mu.Unlock()

	return copyInstructions(merged), nil
}

func copyInstructions(in map[domain.Task]string) map[domain.Task]string {
	out := make(map[domain.Task]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
