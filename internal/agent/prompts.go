package agent

import (
	"fmt"
	"strings"
)

// RetryInstruction replaces the task after a reply that carried a failure
// marker instead of a command.
const RetryInstruction = "The previous round ran into an error. Reconsider and output a correct command."

// APIFailurePrefix starts the reply substituted for a failed model call.
const APIFailurePrefix = "API call failed:"

const continuationTemplate = "Result of the previous command:\n%s\n\nDecide the next step based on the result above and output the next command (or exit to finish)."

var (
	exitTokens     = []string{"exit", "quit", "结束"}
	failureMarkers = []string{APIFailurePrefix, "failed:"}
)

// Continuation builds the next task from a command's (already truncated) output.
func Continuation(output string) string {
	return fmt.Sprintf(continuationTemplate, output)
}

// APIFailureReply is the text that stands in for the model's reply when
// the call itself failed.
func APIFailureReply(err error) string {
	return fmt.Sprintf("%s %v", APIFailurePrefix, err)
}

// IsExitCommand reports whether command asks to end the run. The match is
// whole-text and case-insensitive.
func IsExitCommand(command string) bool {
	lower := strings.ToLower(command)
	for _, tok := range exitTokens {
		if lower == tok {
			return true
		}
	}
	return false
}

// HasFailureMarker reports whether command contains a failure marker
// anywhere in its text.
func HasFailureMarker(command string) bool {
	for _, marker := range failureMarkers {
		if strings.Contains(command, marker) {
			return true
		}
	}
	return false
}

// Truncate returns at most limit characters of s. A non-positive limit
// returns s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
