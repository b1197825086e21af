package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thruflo/cmdpilot/internal/logging"
)

// Environment variables consulted before prompting for a key.
const (
	EnvAPIKey  = "CMDPILOT_API_KEY"
	EnvBaseURL = "CMDPILOT_BASE_URL"
)

// CredentialsFileName is the file name probed in each candidate location.
const CredentialsFileName = "api.txt"

// ErrNoCredentials is returned when no candidate supplied usable credentials.
var ErrNoCredentials = errors.New("no credentials found")

// errIncomplete marks a credentials file with fewer than two usable lines.
var errIncomplete = errors.New("credentials file needs an endpoint line and a key line")

// Credentials identify the model endpoint and the key used to call it.
type Credentials struct {
	BaseURL string
	APIKey  string
	// Source names where the credentials came from: a file path or an
	// environment variable.
	Source string
}

// CandidateCredentialPaths lists the files probed for credentials, in
// order: the explicit paths (empty ones skipped), then the per-user, system
// and working-directory locations.
func CandidateCredentialPaths(explicit ...string) []string {
	var paths []string
	for _, p := range explicit {
		if p != "" {
			paths = append(paths, ExpandHome(p))
		}
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths,
			filepath.Join(home, DirName, CredentialsFileName),
			filepath.Join(home, ".config", "cmdpilot", CredentialsFileName),
		)
	}

	return append(paths,
		filepath.Join("/etc", "cmdpilot", CredentialsFileName),
		CredentialsFileName,
	)
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
// Other paths, and any path when the home directory is unknown, are
// returned unchanged.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// LoadCredentialsFile reads a two-line credentials file: the endpoint on
// the first line and the key on the second. Further lines are ignored.
func LoadCredentialsFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, errIncomplete
	}

	baseURL := strings.TrimSpace(lines[0])
	apiKey := strings.TrimSpace(lines[1])
	if apiKey == "" {
		return nil, errIncomplete
	}

	return &Credentials{BaseURL: baseURL, APIKey: apiKey, Source: path}, nil
}

// FindCredentials returns the first candidate file that yields
// credentials. Missing or incomplete files are skipped silently; any other
// read failure is logged and skipped.
func FindCredentials(paths []string) (*Credentials, error) {
	for _, path := range paths {
		creds, err := LoadCredentialsFile(path)
		if err == nil {
			return creds, nil
		}
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, errIncomplete) {
			continue
		}
		logging.Warn("skipping credentials file", "path", path, "error", err)
	}
	return nil, ErrNoCredentials
}

// CredentialsFromEnv reads credentials from the environment. It returns
// nil when no key is set. A missing base URL falls back to the default.
func CredentialsFromEnv() *Credentials {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return nil
	}

	baseURL := strings.TrimSpace(os.Getenv(EnvBaseURL))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Credentials{BaseURL: baseURL, APIKey: key, Source: EnvAPIKey}
}
