// Package parser extracts a single shell command from free-form model text.
//
// Replies are scanned line by line. The first line that opens a shell fence
// ("```bash" or "```sh") or carries a "command:" label decides the result;
// when neither appears anywhere, the whole reply is the command.
package parser

import "strings"

// Source records which rule produced an extracted command.
type Source int

const (
	SourceFallback Source = iota // whole reply, no marker found
	SourceFence                  // fenced shell block
	SourceLabel                  // "command:" labeled line
)

// String returns a short name for the source.
func (s Source) String() string {
	switch s {
	case SourceFence:
		return "fence"
	case SourceLabel:
		return "label"
	default:
		return "fallback"
	}
}

// Extraction is the result of parsing a model reply.
type Extraction struct {
	Command string
	Source  Source
}

const fenceMarker = "```"

// fenceOpeners are the recognized shell fence tags. Matching is by prefix,
// so "```shell" opens a block too.
var fenceOpeners = []string{"```bash", "```sh"}

// commandLabels are matched case-insensitively against the start of a
// trimmed line.
var commandLabels = []string{"command:", "命令:"}

// ExtractCommand returns the command text found in response.
// It never fails; at worst the trimmed response itself is returned.
func ExtractCommand(response string) string {
	return Parse(response).Command
}

// Parse scans response and reports the command along with the rule that
// matched.
func Parse(response string) Extraction {
	lines := strings.Split(response, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if isFenceOpener(trimmed) {
			return Extraction{
				Command: collectFence(lines[i+1:]),
				Source:  SourceFence,
			}
		}

		if hasCommandLabel(trimmed) {
			_, after, _ := strings.Cut(line, ":")
			return Extraction{
				Command: strings.TrimSpace(after),
				Source:  SourceLabel,
			}
		}
	}

	return Extraction{
		Command: strings.TrimSpace(response),
		Source:  SourceFallback,
	}
}

func isFenceOpener(trimmed string) bool {
	for _, opener := range fenceOpeners {
		if strings.HasPrefix(trimmed, opener) {
			return true
		}
	}
	return false
}

func hasCommandLabel(trimmed string) bool {
	lower := strings.ToLower(trimmed)
	for _, label := range commandLabels {
		if strings.HasPrefix(lower, label) {
			return true
		}
	}
	return false
}

// collectFence joins lines up to the closing fence. An unclosed fence
// consumes the rest of the reply.
func collectFence(lines []string) string {
	var body []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			break
		}
		body = append(body, line)
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
