package ui

// Config contains TUI-specific configuration.
type Config struct {
	ShowAllFiles bool
	EnableMouse  bool
	GlamourStyle string `env:"GLAMOUR_STYLE"`

	// Working directory or file path
	Path string

	// Mode is the view the document opens in: "source", "live" or
	// "reading".
	Mode string `env:"READALONG_MODE" envDefault:"source"`

	// HighlightRegistry keeps reading view highlights out of the rendered
	// document instead of wrapping words in <mark> elements.
	HighlightRegistry bool `env:"READALONG_HIGHLIGHT_REGISTRY" envDefault:"true"`
}
