// Package state records a summary of each finished run under
// .cmdpilot/runs/ so runs can be listed and inspected later. The
// conversation itself is not stored.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrRunNotFound is returned when no recorded run matches an ID.
var ErrRunNotFound = errors.New("run not found")

// Store handles local run storage.
type Store struct {
	basePath string
}

// NewStore creates a new Store with the given base path.
// Runs are stored in <basePath>/.cmdpilot/runs/<id>/.
func NewStore(basePath string) *Store {
	return &Store{basePath: basePath}
}

// RunsDir returns the directory holding one subdirectory per run.
func (s *Store) RunsDir() string {
	return filepath.Join(s.basePath, ".cmdpilot", "runs")
}

func (s *Store) runDir(id string) string {
	return filepath.Join(s.RunsDir(), sanitizeID(id))
}

// sanitizeID keeps an ID to a single path element.
func sanitizeID(id string) string {
	id = strings.NewReplacer("/", "-", `\`, "-").Replace(id)
	if id == "." || id == ".." {
		return strings.Repeat("-", len(id))
	}
	return id
}

// SaveRun writes run.yaml for the run, creating its directory.
func (s *Store) SaveRun(run *Run) error {
	if run.ID == "" {
		return errors.New("run has no ID")
	}

	dir := s.runDir(run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "run.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}

	return nil
}

// GetRun reads the run with the given ID. A unique prefix of an ID is
// accepted as well.
func (s *Store) GetRun(id string) (*Run, error) {
	run, err := s.readRun(sanitizeID(id))
	if err == nil || !errors.Is(err, ErrRunNotFound) {
		return run, err
	}

	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && id != "" && strings.HasPrefix(entry.Name(), id) {
			matches = append(matches, entry.Name())
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return s.readRun(matches[0])
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func (s *Store) readRun(name string) (*Run, error) {
	data, err := os.ReadFile(filepath.Join(s.RunsDir(), name, "run.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, name)
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}

	return &run, nil
}

// ListRuns returns every recorded run, oldest first.
func (s *Store) ListRuns() ([]*Run, error) {
	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*Run{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	runs := []*Run{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		run, err := s.readRun(entry.Name())
		if err != nil {
			continue // Skip directories without a readable run.yaml
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})

	return runs, nil
}
