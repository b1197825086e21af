package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/cmdpilot/internal/llm"
)

// AssertAlternatingRoles asserts that history alternates user and assistant
// messages starting with user.
func AssertAlternatingRoles(t *testing.T, history []llm.Message) {
	t.Helper()
	for i, msg := range history {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		assert.Equal(t, want, msg.Role, "history[%d].Role mismatch", i)
	}
}

// AssertHistoryContents asserts the exact contents of history in order.
func AssertHistoryContents(t *testing.T, history []llm.Message, contents ...string) {
	t.Helper()
	require.Len(t, history, len(contents), "history length mismatch")
	for i, want := range contents {
		assert.Equal(t, want, history[i].Content, "history[%d].Content mismatch", i)
	}
}

// AssertNothingExecuted asserts that the executor never ran a command.
func AssertNothingExecuted(t *testing.T, exec *RecordingExecutor) {
	t.Helper()
	assert.Empty(t, exec.Commands(), "no command should have been executed")
}
