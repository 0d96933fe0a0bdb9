package observability

import "github.com/charmbracelet/lipgloss"

var (
	colorSuccess   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorHighlight = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail      = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
)

type styles struct {
	success   lipgloss.Style
	highlight lipgloss.Style
	fail      lipgloss.Style
	waiting   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		success:   r.NewStyle().Foreground(colorSuccess),
		highlight: r.NewStyle().Foreground(colorHighlight),
		fail:      r.NewStyle().Foreground(colorFail).Bold(true),
		waiting:   r.NewStyle().Foreground(colorMuted).Italic(true),
	}
}
