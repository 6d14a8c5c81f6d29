package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/readalong/tts/prep"
)

const defaultWrapWidth = 80

var (
	convertYAML  bool
	convertStats bool

	convertCmd = &cobra.Command{
		Use:   "convert [SOURCE|DIR]",
		Short: "Print the text that would be spoken",
		Long: paragraph(fmt.Sprintf("\n%s a markdown document into the plain text handed to the speech engine, split into chunks.",
			keyword("Convert"))),
		Example: paragraph("readalong convert README.md\nreadalong convert --yaml notes.md\ncat notes.md | readalong convert --stats"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) > 0 {
				arg = args[0]
			} else if yes, err := stdinIsPipe(); err != nil {
				return err
			} else if yes {
				arg = "-"
			}
			src, err := sourceFromArg(arg, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := loadTTSConfig()
			if err != nil {
				return err
			}
			chunkSize := cfg.Settings.ChunkSize
			if cmd.Flags().Changed("chunk-size") {
				chunkSize, _ = cmd.Flags().GetInt("chunk-size")
			}

			prepared, ok := prep.Prepare(src.content, chunkSize, 0)
			if !ok {
				return nil
			}

			w := cmd.OutOrStdout()
			switch {
			case convertYAML:
				return writeYAML(w, prepared)
			case convertStats:
				return writeStats(w, src.content, prepared)
			default:
				width := terminalWidth(w)
				if width <= 0 {
					width = defaultWrapWidth
				}
				return writeChunks(w, prepared, width)
			}
		},
	}
)

func init() {
	convertCmd.Flags().BoolVar(&convertYAML, "yaml", false, "print chunks and offset anchors as YAML")
	convertCmd.Flags().BoolVar(&convertStats, "stats", false, "print conversion statistics")
	convertCmd.Flags().Int("chunk-size", 0, "longest chunk in bytes (default from config)")
	convertCmd.MarkFlagsMutuallyExclusive("yaml", "stats")
}

func writeChunks(w io.Writer, p *prep.PreparedText, width int) error {
	for i, chunk := range p.Chunks {
		if len(p.Chunks) > 1 {
			header := fmt.Sprintf("chunk %d/%d @ %d", i+1, len(p.Chunks), p.ChunkOffsets[i])
			if _, err := fmt.Fprintln(w, faint(header)); err != nil {
				return fmt.Errorf("unable to write to writer: %w", err)
			}
		}
		if _, err := fmt.Fprintln(w, wordwrap.String(strings.TrimSpace(chunk), width)); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}

func writeYAML(w io.Writer, p *prep.PreparedText) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("unable to encode yaml: %w", err)
	}
	return enc.Close()
}

func writeStats(w io.Writer, source string, p *prep.PreparedText) error {
	plainText := p.PlainText()
	rows := [][2]string{
		{"source", humanize.Bytes(uint64(len(source)))},
		{"plain text", humanize.Bytes(uint64(p.Len()))},
		{"words", humanize.Comma(int64(len(strings.Fields(plainText))))},
		{"chunks", humanize.Comma(int64(len(p.Chunks)))},
		{"anchors", humanize.Comma(int64(len(p.Map)))},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-12s %s\n", r[0]+":", r[1]); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}
	return nil
}
