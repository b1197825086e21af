// Package prompt asks the user for a task or a secret.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrAborted is returned when the user cancels an interactive prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter reads answers from a terminal form when attached to one and
// from plain lines otherwise.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// New creates a Prompter. It is interactive when in is a terminal.
func New(in io.Reader, out io.Writer) *Prompter {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// Interactive reports whether prompts use terminal forms.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// Ask prompts for a line of text and returns it trimmed. Closed input
// yields an empty answer.
func (p *Prompter) Ask(title string) (string, error) {
	if p.interactive {
		return p.runInput(huh.NewInput().Title(title))
	}
	return p.readLine(title)
}

// AskSecret is Ask with the answer hidden while typing.
func (p *Prompter) AskSecret(title string) (string, error) {
	if p.interactive {
		return p.runInput(huh.NewInput().Title(title).EchoMode(huh.EchoModePassword))
	}
	return p.readLine(title)
}

func (p *Prompter) runInput(inp *huh.Input) (string, error) {
	var value string
	inp = inp.Value(&value)
	if err := huh.NewForm(huh.NewGroup(inp)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func (p *Prompter) readLine(title string) (string, error) {
	if title != "" {
		fmt.Fprint(p.out, title+" ")
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
