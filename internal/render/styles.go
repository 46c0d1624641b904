package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles are the lipgloss styles shared by the table renderer and the TUI.
type Styles struct {
	Header    lipgloss.Style
	Sorted    lipgloss.Style
	Cursor    lipgloss.Style
	CursorRow lipgloss.Style
	Selected  lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
}

// NewStyles builds styles bound to w. With noColor every style degrades to
// plain text.
func NewStyles(w io.Writer, noColor bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Styles{
		Header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Sorted:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("13")),
		Cursor:    r.NewStyle().Reverse(true).Bold(true),
		CursorRow: r.NewStyle().Background(lipgloss.AdaptiveColor{Light: "254", Dark: "236"}),
		Selected:  r.NewStyle().Foreground(lipgloss.Color("11")).Underline(true),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		Success:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}
