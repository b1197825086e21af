package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestDir creates a temp directory with an empty .cmdpilot directory
// and returns its path.
func SetupTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cmdpilot"), 0o755))
	return dir
}

// WriteTestFile writes content to relativePath under basePath, creating
// parent directories, and returns the full path.
func WriteTestFile(t *testing.T, basePath, relativePath string, content []byte) string {
	t.Helper()
	full := filepath.Join(basePath, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, content, 0o644))
	return full
}

// WriteCredentialsFile writes a two-line credentials file (endpoint, then
// secret) and returns its path.
func WriteCredentialsFile(t *testing.T, dir, baseURL, apiKey string) string {
	t.Helper()
	return WriteTestFile(t, dir, "api.txt", []byte(baseURL+"\n"+apiKey+"\n"))
}

// IsolateHome points HOME at a fresh temp directory and clears the
// credential environment variables for the duration of the test.
func IsolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CMDPILOT_API_KEY", "")
	t.Setenv("CMDPILOT_BASE_URL", "")
	return home
}

// Chdir changes the working directory for the duration of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(prev)
	})
}
