package testutil

import "strings"

// SampleTask is the task used by most loop scenarios.
const SampleTask = "list files"

// Model replies in the shapes the parser has to handle.
const (
	ReplyFencedBash = "I will list the directory contents.\n\n```bash\nls -la\n```\n\nThis shows hidden files too."

	ReplyFencedSh = "```sh\ncd /tmp\nls\n```"

	ReplyLabeled = "First check the disk.\nCommand: df -h\nThen decide."

	ReplyPlain = "  uname -a  \n"

	ReplyExit = "All done.\n```bash\nexit\n```"

	ReplyQuitUpper = "QUIT"

	ReplyAPIFailure = "API call failed: connection refused"

	ReplyWhitespace = " \n\t "
)

// SampleListing is the output the scenario executor returns for ls -la.
const SampleListing = "file1\nfile2"

// FencedReply wraps command in a bash fence surrounded by prose.
func FencedReply(command string) string {
	return "Next step:\n```bash\n" + command + "\n```\nDone."
}

// LongOutput returns n characters of output made of multi-byte runes so that
// byte and character counts differ.
func LongOutput(n int) string {
	return strings.Repeat("é", n)
}
