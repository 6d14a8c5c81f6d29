package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/muesli/reflow/ansi"
	"golang.org/x/term"

	"github.com/dgnsrekt/readalong/internal/editor"
	"github.com/dgnsrekt/readalong/internal/logging"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/prep"
	ttsync "github.com/dgnsrekt/readalong/tts/sync"
)

// runPlain reads content aloud without the TUI. Every spoken word is
// written to w as it is reported. It returns once playback ends, fails or
// ctx is done.
func runPlain(ctx context.Context, w io.Writer, content string, cfg tts.Config, backend tts.SpeechBackend) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	mailbox := ttsync.NewMailbox(nil)
	orch := tts.NewOrchestrator(backend,
		tts.WithDispatcher(mailbox),
		tts.WithScheduler(ttsync.Immediate{}),
		tts.WithPreparer(prep.NewPreparer(cfg.CacheSize)),
		tts.WithEditor(editor.New(content)),
		tts.WithLogger(logging.Default().WithPrefix("tts")),
	)

	printer := newWordPrinter(w, terminalWidth(w))
	var playErr error
	orch.OnHighlight(printer.print)
	orch.OnEnd(mailbox.Close)
	orch.OnError(func(err error) {
		playErr = err
		mailbox.Close()
	})

	mailbox.Post(func() {
		if err := orch.PlayFromEditor(cfg.Settings, tts.TargetEditor); err != nil {
			playErr = err
			mailbox.Close()
			return
		}
		if playErr == nil && orch.State() == tts.StateIdle {
			fmt.Fprintln(w, faint("Nothing to read.")) //nolint:errcheck
			mailbox.Close()
		}
	})

	err := mailbox.Run(ctx)
	mailbox.Close()
	orch.Stop()
	printer.done()

	switch {
	case playErr != nil:
		return playErr
	case errors.Is(err, context.Canceled):
		// interrupted by the user
		return nil
	default:
		return err
	}
}

// terminalWidth returns the width of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// wordPrinter writes spoken words. With a width the words flow as wrapped
// text; otherwise each word gets a line with its source range.
type wordPrinter struct {
	w     io.Writer
	width int
	col   int
}

func newWordPrinter(w io.Writer, width int) *wordPrinter {
	return &wordPrinter{w: w, width: width}
}

func (p *wordPrinter) print(ev tts.HighlightEvent) {
	if p.width <= 0 {
		if ev.Mapped {
			fmt.Fprintf(p.w, "%d\t%d\t%s\n", ev.Range.From, ev.Range.To, ev.Word) //nolint:errcheck
		} else {
			fmt.Fprintf(p.w, "-\t-\t%s\n", ev.Word) //nolint:errcheck
		}
		return
	}

	word := keyword(ev.Word)
	n := ansi.PrintableRuneWidth(word)
	switch {
	case p.col == 0:
	case p.col+1+n > p.width:
		fmt.Fprintln(p.w) //nolint:errcheck
		p.col = 0
	default:
		fmt.Fprint(p.w, " ") //nolint:errcheck
		p.col++
	}
	fmt.Fprint(p.w, word) //nolint:errcheck
	p.col += n
}

func (p *wordPrinter) done() {
	if p.col > 0 {
		fmt.Fprintln(p.w) //nolint:errcheck
		p.col = 0
	}
}
