package conf

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tphakala/bwpull/internal/errors"
)

// Prompt labels shown during bootstrap
const (
	PromptToken   = "Enter the token: "
	PromptStation = "Enter the station: "
)

// Prompter supplies a value for a label. Tests use a canned implementation.
type Prompter interface {
	Prompt(label string) (string, error)
}

// PrompterFunc adapts a function to the Prompter interface
type PrompterFunc func(label string) (string, error)

// Prompt implements Prompter
func (f PrompterFunc) Prompt(label string) (string, error) {
	return f(label)
}

// ConsolePrompter writes labels to out and reads one line per answer from in.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a ConsolePrompter
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{in: bufio.NewReader(in), out: out}
}

// Prompt implements Prompter. A final line without a newline is accepted.
func (p *ConsolePrompter) Prompt(label string) (string, error) {
	if _, err := fmt.Fprint(p.out, label); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
