// Package prompt loads the system and user prompt templates from prompts.md
// in the .glance/ directory. The file is created with working defaults on
// first run and can be edited while the overlay is open.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	promptsFileName = "prompts.md"

	systemHeading = "## System Prompt"
	userHeading   = "## User Prompt"

	questionPlaceholder = "{question}"
)

// Source serves the current prompt templates. It is safe for concurrent use;
// Watch swaps templates in place while asks read them.
type Source struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	system string
	user   string
}

// NewSource loads prompts.md from dir, writing the default file first when
// it does not exist. A file that exists but does not parse leaves the
// defaults active rather than failing startup.
func NewSource(dir string, logger *zap.Logger) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Source{
		path:   filepath.Join(dir, promptsFileName),
		logger: logger,
		system: defaultSystemPrompt,
		user:   defaultUserPrompt,
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if werr := os.WriteFile(s.path, []byte(defaultPromptsFile), 0o644); werr != nil {
			return nil, fmt.Errorf("writing default prompts: %w", werr)
		}
		logger.Info("created default prompts file", zap.String("path", s.path))
	case err != nil:
		return nil, fmt.Errorf("reading prompts: %w", err)
	default:
		if perr := s.apply(data); perr != nil {
			logger.Warn("invalid prompts file, using defaults",
				zap.String("path", s.path),
				zap.Error(perr))
		}
	}

	return s, nil
}

// Path returns the location of the prompts file.
func (s *Source) Path() string {
	return s.path
}

// SystemPrompt returns the current system prompt.
func (s *Source) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

// UserPrompt renders the user prompt template with the given question.
func (s *Source) UserPrompt(question string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.ReplaceAll(s.user, questionPlaceholder, question)
}

// Reload re-reads the prompts file. On failure the previous templates stay
// active and the error is returned for the caller to log.
func (s *Source) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading prompts: %w", err)
	}
	return s.apply(data)
}

func (s *Source) apply(data []byte) error {
	system, user, err := parse(string(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.system = system
	s.user = user
	s.mu.Unlock()
	return nil
}

// parse splits the file on its two headings. Text before the system heading
// is free-form commentary and is ignored.
func parse(content string) (system, user string, err error) {
	si := strings.Index(content, systemHeading)
	if si < 0 {
		return "", "", fmt.Errorf("missing %q heading", systemHeading)
	}

	ui := strings.Index(content, userHeading)
	if ui < 0 {
		return "", "", fmt.Errorf("missing %q heading", userHeading)
	}
	if ui < si {
		return "", "", fmt.Errorf("%q must come before %q", systemHeading, userHeading)
	}

	system = strings.TrimSpace(content[si+len(systemHeading) : ui])
	user = strings.TrimSpace(content[ui+len(userHeading):])

	if system == "" {
		return "", "", errors.New("system prompt section is empty")
	}
	if user == "" {
		return "", "", errors.New("user prompt section is empty")
	}

	return system, user, nil
}
