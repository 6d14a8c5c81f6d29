package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	te "github.com/muesli/termenv"
)

type keyMap struct {
	PlayPause key.Binding
	PlayHere  key.Binding
	Stop      key.Binding
	Mode      key.Binding
	Copy      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		PlayHere: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "read from top of screen"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s", "S"),
			key.WithHelp("s", "stop"),
		),
		Mode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch view"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy spoken word"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.PlayHere, k.Stop},
		{k.Mode, k.Copy, k.Help, k.Quit},
	}
}

// helpMarkdown lists the key bindings as a markdown table.
func helpMarkdown(k keyMap) string {
	var b strings.Builder
	b.WriteString("## Keys\n\n| Key | Action |\n|---|---|\n")
	for _, col := range k.FullHelp() {
		for _, binding := range col {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("| `↑/↓ pgup/pgdn` | scroll |\n")
	b.WriteString("\nViews cycle through **source**, **live** (tables rendered) and **reading**.\n")
	return b.String()
}

// renderHelp renders the key table for the terminal.
func renderHelp(k keyMap, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(resolveGlamourStyle(style)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("error creating glamour renderer: %w", err)
	}
	out, err := r.Render(helpMarkdown(k))
	if err != nil {
		return "", fmt.Errorf("error rendering help: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

func resolveGlamourStyle(style string) string {
	switch style {
	case "", styles.AutoStyle:
		if te.HasDarkBackground() {
			return styles.DarkStyle
		}
		return styles.LightStyle
	default:
		return style
	}
}
