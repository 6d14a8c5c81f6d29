package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
}

// HighlightStyle returns the style of the spoken word for a highlight
// colour setting. Names map to the eight basic ANSI colours, hex and ANSI
// numbers are used as they are. "none" gets reverse video.
func HighlightStyle(color string) lipgloss.Style {
	color = strings.ToLower(strings.TrimSpace(color))
	if color == "" || color == "none" {
		return lipgloss.NewStyle().Reverse(true)
	}
	if c, ok := namedColors[color]; ok {
		color = c
	}

	fg := "0"
	if color == "0" || color == "4" || color == "#000" || color == "#000000" {
		fg = "7"
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(lipgloss.Color(fg))
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	strongStyle  = lipgloss.NewStyle().Bold(true)
	emStyle      = lipgloss.NewStyle().Italic(true)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	linkStyle    = lipgloss.NewStyle().Underline(true)
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)
