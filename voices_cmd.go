package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/tts"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [FILTER]",
	Short:   "List the voices of the speech engine",
	Long:    paragraph(fmt.Sprintf("\n%s the voices the configured speech engine offers, best fuzzy match first when a filter is given.", keyword("List"))),
	Example: paragraph("readalong voices\nreadalong voices british"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadTTSConfig()
		if err != nil {
			return err
		}
		backend, err := newBackend(cfg)
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		voices := tts.FilterVoices(backend.Voices(), query)
		if len(voices) == 0 {
			return fmt.Errorf("%w: no voice matches %q", tts.ErrVoiceNotFound, query)
		}
		return writeVoices(cmd.OutOrStdout(), voices)
	},
}

var voiceHeaderStyle = lipgloss.NewStyle().Bold(true)

// writeVoices prints voices as aligned columns.
func writeVoices(w io.Writer, voices []tts.Voice) error {
	rows := [][]string{{"ID", "NAME", "LANGUAGE", "GENDER"}}
	for _, v := range voices {
		rows = append(rows, []string{v.ID, v.Name, v.Language, v.Gender})
	}

	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	for n, r := range rows {
		cells := make([]string, len(r))
		for i, cell := range r {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if n == 0 {
			line = voiceHeaderStyle.Render(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}
