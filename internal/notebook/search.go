package notebook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/notecli/internal/apperr"
)

// Hit is one matching line. Line is 1-based and Text keeps the line ending.
type Hit struct {
	Page *Page
	Line int
	Text string
}

// Search greps pages in order and returns every line matching re. The line
// ending is not part of the text matched against. The result is never nil.
func Search(pages []*Page, re *regexp.Regexp) ([]Hit, error) {
	hits := []Hit{}
	for _, p := range pages {
		text, err := p.Read()
		if err != nil {
			return nil, err
		}
		for i, line := range splitLines(text) {
			if re.MatchString(strings.TrimRight(line, "\r\n")) {
				hits = append(hits, Hit{Page: p, Line: i + 1, Text: line})
			}
		}
	}
	return hits, nil
}

// Grep compiles pattern and searches pages with it.
func Grep(pages []*Page, pattern string) ([]Hit, error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return Search(pages, re)
}

// Compile parses a search pattern as a regular expression.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("notebook: pattern %q: %w: %w", pattern, apperr.ErrInvalidName, err)
	}
	return re, nil
}

// splitLines splits text after each newline, keeping it.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
