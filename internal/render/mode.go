// Package render writes sheet snapshots as terminal tables, CSV, JSON or
// Markdown.
package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// Mode is an output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeTable    Mode = "table"
	ModeCSV      Mode = "csv"
	ModeJSON     Mode = "json"
	ModeMarkdown Mode = "markdown"
)

// Modes lists the accepted mode names for flag completion.
func Modes() []string {
	return []string{string(ModeAuto), string(ModeTable), string(ModeCSV), string(ModeJSON), string(ModeMarkdown)}
}

// ParseMode accepts a mode name or one of its aliases (text, md).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "table", "text":
		return ModeTable, nil
	case "csv":
		return ModeCSV, nil
	case "json":
		return ModeJSON, nil
	case "markdown", "md":
		return ModeMarkdown, nil
	}
	return "", fmt.Errorf("invalid output format %q (want %s)", s, strings.Join(Modes(), ", "))
}

// Resolve turns ModeAuto into a concrete mode: a table when w is a terminal,
// Markdown otherwise.
func (m Mode) Resolve(w io.Writer) Mode {
	if m != ModeAuto && m != "" {
		return m
	}
	if IsTerminal(w) {
		return ModeTable
	}
	return ModeMarkdown
}

type fdWriter interface {
	Fd() uintptr
}

// IsTerminal reports whether w writes to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of the terminal behind w, or fallback.
func TerminalWidth(w io.Writer, fallback int) int {
	if f, ok := w.(fdWriter); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return fallback
}
