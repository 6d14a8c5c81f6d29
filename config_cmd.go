package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/readalong/tts"
)

const defaultConfig = `# view to open in: source, live or reading
mode: "source"
# mouse support (TUI-mode only)
mouse: false
# include hidden and git-ignored files when searching a directory
all: false

tts:
  # speech engine
  engine: "mock"
  # backend to switch to when the engine keeps failing
  # fallback: "mock"
  # voice name, id or language tag (empty for the engine default)
  voice: ""
  # speaking rate (0.5 to 2.0)
  rate: 1.0
  # pitch (0.5 to 2.0)
  pitch: 1.0
  # volume (0.0 to 1.0)
  volume: 1.0
  # highlight color: a color name, hex color, ANSI number or "none"
  highlight_color: "yellow"
  # keep the spoken word on screen
  auto_scroll: true
  # longest text handed to the speech engine at once
  chunk_size: 250
  # highlight refreshes per second
  frame_rate: 60
  # lines kept between the highlight and the edge of the screen
  scroll_margin: 3
  # prepared documents kept for replay
  cache_size: 16

  # mock engine, speaks silently at a fixed pace
  mock:
    words_per_minute: 150
    # what cancelling reports: error, end or silent
    cancel_behavior: "error"
    omit_char_length: false
    duplicate_end: false
`

var (
	showConfig bool

	configCmd = &cobra.Command{
		Use:     "config",
		Hidden:  false,
		Short:   "Edit the readalong config file",
		Long:    paragraph(fmt.Sprintf("\n%s the readalong config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
		Example: paragraph("readalong config\nreadalong config --config path/to/config.yml\nreadalong config --show"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showConfig {
				cfg, err := loadTTSConfig()
				if err != nil {
					return err
				}
				return writeConfig(cmd.OutOrStdout(), cfg)
			}

			if err := ensureConfigFile(); err != nil {
				return err
			}

			c, err := editor.Cmd("readalong", configFile)
			if err != nil {
				return fmt.Errorf("unable to set config file: %w", err)
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to run command: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Wrote config file to:", configFile) //nolint:errcheck
			return nil
		},
	}
)

func init() {
	configCmd.Flags().BoolVar(&showConfig, "show", false, "print the effective configuration instead of editing it")
}

// writeConfig prints the effective TTS configuration as YAML.
func writeConfig(w io.Writer, cfg tts.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]tts.Config{"tts": cfg}); err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}
	return enc.Close()
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
