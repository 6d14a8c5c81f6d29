// Package ui provides the terminal UI that reads a document aloud.
package ui

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/readalong/internal/editor"
	"github.com/dgnsrekt/readalong/internal/logging"
	"github.com/dgnsrekt/readalong/internal/render"
	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/dom"
	"github.com/dgnsrekt/readalong/tts/prep"
	ttsync "github.com/dgnsrekt/readalong/tts/sync"
)

const (
	statusBarHeight      = 1
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
)

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(lipgloss.Color("#8E58D3")).
			Bold(true)

	statusBarScrollPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg)

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen)

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(red)

	helpViewStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"})

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(red).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().Foreground(statusBarNoteFg)
)

// NewProgram returns a new Tea program reading content aloud through
// backend.
func NewProgram(cfg Config, ttsCfg tts.Config, backend tts.SpeechBackend, content string) *tea.Program {
	log.Debug("Starting readalong", "mode", cfg.Mode, "engine", ttsCfg.Engine, "path", cfg.Path)

	var p *tea.Program
	mailbox := ttsync.NewMailbox(func(fn func()) {
		p.Send(tts.DispatchMsg{Fn: fn})
	})
	frames := ttsync.NewFrameScheduler(mailbox.Post, ttsCfg.FrameRate)

	m := newModel(cfg, ttsCfg, backend, content, mailbox, frames)
	m.mailbox = mailbox
	if cfg.Path != "" {
		m.watcher = newFileWatcher(cfg.Path)
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p = tea.NewProgram(m, opts...)
	return p
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type statusMessageTimeoutMsg struct{}

type model struct {
	cfg      Config
	ttsCfg   tts.Config
	width    int
	height   int
	fatalErr error

	note    string
	buffer  *editor.Buffer
	reading *readingSurface
	doc     *documentView
	status  *StatusDisplay

	orch    *tts.Orchestrator
	events  *tts.EventQueue
	mailbox *ttsync.Mailbox
	watcher *fileWatcher

	keys     keyMap
	help     help.Model
	showHelp bool
	helpText string

	statusMessage      string
	statusIsError      bool
	statusMessageTimer *time.Timer
}

func newModel(cfg Config, ttsCfg tts.Config, backend tts.SpeechBackend, content string, dispatcher tts.Dispatcher, scheduler tts.Scheduler) model {
	m := model{
		cfg:     cfg,
		ttsCfg:  ttsCfg,
		note:    "stdin",
		buffer:  editor.New(content),
		reading: &readingSurface{},
		status:  NewStatusDisplay(),
		events:  &tts.EventQueue{},
		keys:    newKeyMap(),
		help:    help.New(),
	}
	if cfg.Path != "" {
		m.note = filepath.Base(cfg.Path)
	}
	if err := m.reading.load(content); err != nil {
		log.Error("unable to render document", "error", err)
		m.fatalErr = err
	}

	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		log.Warn("falling back to source view", "error", err)
	}

	var registry *dom.Registry
	if cfg.HighlightRegistry {
		registry = dom.NewRegistry()
	}

	m.doc = newDocumentView(m.buffer, m.reading, registry,
		render.HighlightStyle(ttsCfg.Settings.HighlightColor), ttsCfg.ScrollMargin)
	m.doc.setMode(mode)

	opts := []tts.Option{
		tts.WithDispatcher(dispatcher),
		tts.WithScheduler(scheduler),
		tts.WithPreparer(prep.NewPreparer(ttsCfg.CacheSize)),
		tts.WithEditor(m.buffer),
		tts.WithReadingSurface(m.reading),
		tts.WithScroller(m.doc),
		tts.WithLogger(logging.Default().WithPrefix("tts")),
	}
	if registry != nil {
		opts = append(opts, tts.WithRegistry(registry))
	}
	m.orch = tts.NewOrchestrator(backend, opts...)
	m.events.Bind(m.orch)

	return m
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.mailbox != nil {
		mailbox := m.mailbox
		cmds = append(cmds, func() tea.Msg {
			if err := mailbox.Run(context.Background()); err != nil {
				log.Debug("mailbox stopped", "error", err)
			}
			return nil
		})
	}
	cmds = append(cmds, m.watcher.wait())
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tts.DispatchMsg:
		msg.Run()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.shutdown()
			return m, tea.Quit

		case key.Matches(msg, m.keys.PlayPause):
			if m.orch.Status().IsActive() {
				m.orch.TogglePause()
			} else {
				cmds = append(cmds, m.play(false))
			}

		case key.Matches(msg, m.keys.PlayHere):
			cmds = append(cmds, m.play(true))

		case key.Matches(msg, m.keys.Stop):
			m.orch.Stop()

		case key.Matches(msg, m.keys.Mode):
			m.orch.SurfaceChanged()
			m.doc.setMode((m.doc.mode + 1) % 3)
			cmds = append(cmds, m.showStatusMessage(m.doc.mode.String()+" view", false))

		case key.Matches(msg, m.keys.Copy):
			cmds = append(cmds, m.copyWord())

		case key.Matches(msg, m.keys.Help):
			m.toggleHelp()

		default:
			var cmd tea.Cmd
			m.doc.viewport, cmd = m.doc.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.helpText = ""
		m.setSize()

	case reloadMsg:
		cmds = append(cmds, m.reload(), m.watcher.wait())

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false

	case errMsg:
		m.fatalErr = msg.err

	default:
		var cmd tea.Cmd
		m.doc.viewport, cmd = m.doc.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.handleEvents()...)
	return m, tea.Batch(cmds...)
}

// handleEvents applies what the orchestrator reported while the message was
// being handled.
func (m *model) handleEvents() []tea.Cmd {
	msgs := m.events.Flush()
	if len(msgs) == 0 {
		return nil
	}

	var cmds []tea.Cmd
	for _, msg := range msgs {
		switch msg := msg.(type) {
		case tts.StateChangedMsg:
			m.status.Update(msg.Event)
		case tts.HighlightMsg:
			m.status.SetWord(msg.Event.Word)
		case tts.PlaybackEndedMsg:
			m.status.SetWord("")
		case tts.TTSErrorMsg:
			log.Error("playback failed", "error", msg.Error, "recoverable", msg.Recoverable)
			m.status.SetError(msg.Error)
			cmds = append(cmds, m.showStatusMessage(msg.Error.Error(), true))
		}
	}
	m.doc.refresh()
	return cmds
}

// play starts reading. In the reading view the whole document is read;
// otherwise reading starts at the selection or cursor, or at the top of the
// screen when fromTop is set.
func (m *model) play(fromTop bool) tea.Cmd {
	settings := m.ttsCfg.Settings

	var err error
	if m.doc.mode == ModeReading {
		err = m.orch.Play(m.buffer.Text(), settings, tts.TargetReading, 0)
	} else {
		if fromTop {
			if off, ok := m.doc.topOffset(); ok {
				m.buffer.SetCursor(off)
			}
		}
		err = m.orch.PlayFromEditor(settings, tts.TargetEditor)
	}

	if err != nil {
		log.Error("unable to start playback", "error", err)
		return m.showStatusMessage(err.Error(), true)
	}
	if m.orch.State() == tts.StateIdle {
		return m.showStatusMessage("Nothing to read", false)
	}
	return nil
}

func (m *model) copyWord() tea.Cmd {
	word := m.orch.CurrentWord()
	if word == "" {
		return m.showStatusMessage("Nothing to copy", false)
	}
	// Copy using OSC 52
	termenv.Copy(word)
	// Copy using native system clipboard
	if err := clipboard.WriteAll(word); err != nil {
		log.Debug("native clipboard unavailable", "error", err)
	}
	return m.showStatusMessage(fmt.Sprintf("Copied %q", word), false)
}

// reload replaces the document with the file's current contents.
func (m *model) reload() tea.Cmd {
	content, err := os.ReadFile(m.cfg.Path)
	if err != nil {
		log.Error("unable to read file", "file", m.cfg.Path, "error", err)
		return m.showStatusMessage("Reload failed", true)
	}
	m.setContent(string(content))
	return m.showStatusMessage("Reloaded", false)
}

// setContent replaces the document. Playback on the old text is stopped.
func (m *model) setContent(content string) {
	m.orch.DocumentChanged()
	m.buffer.SetText(content)
	if err := m.reading.load(content); err != nil {
		log.Error("unable to render document", "error", err)
	}
	m.doc.refresh()
}

func (m *model) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize()
}

func (m *model) setSize() {
	height := m.height - statusBarHeight
	if m.showHelp {
		if m.helpText == "" {
			s, err := renderHelp(m.keys, m.cfg.GlamourStyle, max(0, m.width-4))
			if err != nil {
				log.Error("error rendering help", "error", err)
			}
			m.helpText = s
		}
		height -= lipgloss.Height(m.helpView())
	}
	m.doc.setSize(m.width, max(0, height))
}

func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessage = msg
	m.statusIsError = isError
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m *model) shutdown() {
	m.orch.Stop()
	if m.mailbox != nil {
		m.mailbox.Close()
	}
	m.watcher.close()
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder
	fmt.Fprint(&b, m.doc.viewport.View()+"\n")
	m.statusBarView(&b)
	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}
	return b.String()
}

func (m model) statusBarView(b *strings.Builder) {
	const (
		minPercent               float64 = 0.0
		maxPercent               float64 = 1.0
		percentToStringMagnitude float64 = 100.0
	)

	noteStyle := statusBarNoteStyle
	switch {
	case m.statusMessage != "" && m.statusIsError:
		noteStyle = statusBarErrorStyle
	case m.statusMessage != "":
		noteStyle = statusBarMessageStyle
	}

	logo := logoStyle.Render(" " + m.doc.mode.String() + " ")

	percent := math.Max(minPercent, math.Min(maxPercent, m.doc.viewport.ScrollPercent()))
	scrollPercent := statusBarScrollPosStyle.Render(fmt.Sprintf(" %3.f%% ", percent*percentToStringMagnitude))

	helpNote := statusBarNoteStyle.Render(" " + m.help.ShortHelpView(m.keys.ShortHelp()) + " ")

	note := m.note
	if s := m.status.CompactStatus(); s != "" {
		note += " │ " + s
	}
	if m.statusMessage != "" {
		note = m.statusMessage
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(scrollPercent)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = noteStyle.Render(note)

	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(scrollPercent)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := noteStyle.Render(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		scrollPercent,
		helpNote,
	)
}

func (m model) helpView() string {
	s := m.helpText
	if m.orch.Status().IsActive() {
		s += "\n" + indent.String(m.status.ProgressBar(max(10, m.width/2)), 2)
	}
	return helpViewStyle.Render(s)
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent.String(s, 3)
}

// COMMANDS

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}
