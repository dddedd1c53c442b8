// Package ui renders command output and asks for confirmation on the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/starford/notecli/internal/noteservice"
)

// Colour palette shared with the log handler: accent for page names, muted
// for line numbers and notices.
const (
	accentColor = lipgloss.Color("#A78BFA")
	mutedColor  = lipgloss.Color("#6C7086")
)

// Printer writes styled output. Colours are dropped when w is not a terminal.
type Printer struct {
	w      io.Writer
	accent lipgloss.Style
	muted  lipgloss.Style
}

// NewPrinter returns a printer for w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:      w,
		accent: r.NewStyle().Foreground(accentColor),
		muted:  r.NewStyle().Foreground(mutedColor),
	}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer { return p.w }

// Lines prints one name per line.
func (p *Printer) Lines(names []string) {
	for _, n := range names {
		fmt.Fprintln(p.w, p.accent.Render(n))
	}
}

// Hits prints grep results as page:line: text.
func (p *Printer) Hits(hits []noteservice.SearchHit) {
	for _, h := range hits {
		fmt.Fprintf(p.w, "%s%s%s %s\n",
			p.accent.Render(h.Page),
			p.muted.Render(":"),
			p.muted.Render(fmt.Sprintf("%d:", h.Line)),
			strings.TrimRight(h.Text, "\r\n"),
		)
	}
}

// Pages prints a page listing with sizes.
func (p *Printer) Pages(items []noteservice.PageListItem) {
	for _, it := range items {
		fmt.Fprintf(p.w, "%s %s\n", p.accent.Render(it.Fullname), p.muted.Render(fmt.Sprintf("(%d bytes)", it.Size)))
	}
}

// Notice prints a muted status line.
func (p *Printer) Notice(format string, args ...any) {
	fmt.Fprintln(p.w, p.muted.Render(fmt.Sprintf(format, args...)))
}

// YAML prints v as a YAML document.
func (p *Printer) YAML(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("ui: encode yaml: %w", err)
	}
	return enc.Close()
}
