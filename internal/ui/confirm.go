package ui

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

// ErrNotInteractive is returned when a confirmation is needed but there is no
// terminal to ask on.
var ErrNotInteractive = errors.New("confirmation required but stdin is not a terminal (use --yes)")

// Prompter asks yes/no questions.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// Interactive reports whether both stdin and stdout are terminals.
func Interactive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TermPrompter prompts on the controlling terminal with line editing.
type TermPrompter struct{}

// Confirm asks question and reports whether the answer was yes. Ctrl-C and
// end of input count as no.
func (TermPrompter) Confirm(question string) (bool, error) {
	if !Interactive() {
		return false, ErrNotInteractive
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	answer, err := line.Prompt(question + " [y/N] ")
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return IsYes(answer), nil
}

// IsYes reports whether answer means yes.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// AssumeYes is a Prompter that always agrees, used for --yes.
type AssumeYes struct{}

func (AssumeYes) Confirm(string) (bool, error) { return true, nil }
