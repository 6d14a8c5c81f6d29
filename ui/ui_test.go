package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgnsrekt/readalong/tts"
	"github.com/dgnsrekt/readalong/tts/engines/mock"
	ttsync "github.com/dgnsrekt/readalong/tts/sync"
	"github.com/dgnsrekt/readalong/tts/textmap"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func newTestModel(t *testing.T, cfg Config, content string) (model, *mock.Engine) {
	t.Helper()
	if cfg.Mode == "" {
		cfg.Mode = ModeSource.String()
	}
	cfg.GlamourStyle = "dark"

	engine := mock.New(tts.DefaultMockConfig(), mock.WithManual())
	m := newModel(cfg, tts.DefaultConfig(), engine, content, ttsync.Immediate{}, ttsync.Immediate{})
	require.NoError(t, m.fatalErr)

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 10})
	return m, engine
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

// settle lets the model apply what the orchestrator reported outside Update.
func settle(t *testing.T, m model) model {
	t.Helper()
	return update(t, m, tts.DispatchMsg{})
}

func press(t *testing.T, m model, k string) model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return update(t, m, msg)
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "line %02d\n", i)
	}
	return b.String()
}

func TestPlayHighlightsSource(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{}, "Hello **big** world")
	m = press(t, m, " ")
	assert.Equal(t, tts.StatePlaying, m.orch.State())

	require.True(t, engine.Advance())
	require.True(t, engine.Advance())
	m = settle(t, m)

	assert.Equal(t, "big", m.status.Word())
	deco, ok := m.buffer.Decoration()
	require.True(t, ok)
	assert.Equal(t, textmap.EditorRange{From: 8, To: 11}, deco)
	assert.Contains(t, stripANSI(m.View()), "Hello **big** world")
	assert.Equal(t, "▶ TTS 1/1 big", stripANSI(m.status.CompactStatus()))
}

func TestPauseResumeStop(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{}, "one two three")
	m = press(t, m, " ")
	m = press(t, m, " ")
	assert.Equal(t, tts.StatePaused, m.orch.State())
	assert.True(t, engine.Paused())

	m = press(t, m, " ")
	assert.Equal(t, tts.StatePlaying, m.orch.State())

	m = press(t, m, "s")
	assert.Equal(t, tts.StateIdle, m.orch.State())
	assert.False(t, m.status.IsActive())
}

func TestModeSwitchStops(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, Config{}, "one two three")
	m = press(t, m, " ")
	require.Equal(t, tts.StatePlaying, m.orch.State())

	m = press(t, m, "tab")
	assert.Equal(t, tts.StateIdle, m.orch.State())
	assert.Equal(t, ModeLive, m.doc.mode)
	assert.True(t, m.buffer.LivePreview())
	assert.Equal(t, "live view", m.statusMessage)

	m = press(t, m, "tab")
	assert.Equal(t, ModeReading, m.doc.mode)
	assert.False(t, m.buffer.LivePreview())

	m = press(t, m, "tab")
	assert.Equal(t, ModeSource, m.doc.mode)
}

func TestReadingModeRegistry(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{Mode: "reading", HighlightRegistry: true}, "# Title\n\nHello world")
	m = press(t, m, " ")
	require.Equal(t, tts.StatePlaying, m.orch.State())

	require.True(t, engine.Advance())
	require.True(t, engine.Advance())
	m = settle(t, m)

	assert.Equal(t, "Hello", m.status.Word())
	assert.Equal(t, 1, m.doc.registry.Len())
	_, ok := m.buffer.Decoration()
	assert.False(t, ok, "the reading view leaves the source undecorated")
	assert.Contains(t, stripANSI(m.View()), "Hello world")

	m = press(t, m, "s")
	assert.Equal(t, 0, m.doc.registry.Len())
}

func TestReadingModeMarks(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{Mode: "reading"}, "Hello world")
	m = press(t, m, " ")
	require.True(t, engine.Advance())
	m = settle(t, m)

	assert.Nil(t, m.doc.registry)
	assert.Contains(t, stripANSI(m.View()), "Hello world")

	m = press(t, m, "s")
	assert.Contains(t, stripANSI(m.View()), "Hello world")
}

func TestLiveModeHighlightsWidgets(t *testing.T) {
	t.Parallel()

	doc := "intro\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nafter"
	m, engine := newTestModel(t, Config{Mode: "live"}, doc)
	assert.Contains(t, stripANSI(m.View()), "a │ b")

	m = press(t, m, " ")
	require.True(t, engine.Advance())
	require.True(t, engine.Advance())
	m = settle(t, m)

	assert.Equal(t, "a", m.status.Word())
	_, ok := m.buffer.Decoration()
	assert.False(t, ok)
}

func TestPlayFromTopOfScreen(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{}, numberedLines(50))
	m.doc.viewport.SetYOffset(20)

	m = press(t, m, "enter")
	require.Equal(t, tts.StatePlaying, m.orch.State())

	spoken := engine.Spoken()
	require.NotEmpty(t, spoken)
	assert.True(t, strings.HasPrefix(spoken[0], "line 20"), "first chunk = %q", spoken[0])
}

func TestAutoScrollFollowsHighlight(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{}, numberedLines(50))
	m = press(t, m, " ")

	// Two words per line, so this stops on line 14.
	for range 30 {
		require.True(t, engine.Advance())
	}
	m = settle(t, m)

	assert.Equal(t, "14", m.status.Word())
	top, height := m.doc.viewport.YOffset, m.doc.viewport.Height
	assert.Positive(t, top)
	assert.GreaterOrEqual(t, 14, top+m.doc.margin)
	assert.Less(t, 14, top+height)
}

func TestReloadStopsPlayback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("first version"), 0o644))

	m, _ := newTestModel(t, Config{Path: path}, "first version")
	assert.Equal(t, "doc.md", m.note)
	m = press(t, m, " ")
	require.Equal(t, tts.StatePlaying, m.orch.State())

	require.NoError(t, os.WriteFile(path, []byte("second version"), 0o644))
	m = update(t, m, reloadMsg{})

	assert.Equal(t, tts.StateIdle, m.orch.State())
	assert.Equal(t, "second version", m.buffer.Text())
	assert.Equal(t, "Reloaded", m.statusMessage)
	assert.Contains(t, stripANSI(m.View()), "second version")
}

func TestBackendErrorShown(t *testing.T) {
	t.Parallel()

	m, engine := newTestModel(t, Config{}, "one two three")
	m = press(t, m, " ")
	engine.Fail("synthesis-failed")
	m = settle(t, m)

	assert.Equal(t, tts.StateIdle, m.orch.State())
	assert.True(t, m.statusIsError)
	assert.Contains(t, m.statusMessage, "synthesis-failed")

	m = update(t, m, statusMessageTimeoutMsg{})
	assert.Empty(t, m.statusMessage)
	assert.Contains(t, stripANSI(m.status.CompactStatus()), "synthesis-failed")
}

func TestNothingToRead(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, Config{}, "---\ntitle: x\n---\n")
	m = press(t, m, " ")
	assert.Equal(t, tts.StateIdle, m.orch.State())
	assert.Equal(t, "Nothing to read", m.statusMessage)

	m = press(t, m, "y")
	assert.Equal(t, "Nothing to copy", m.statusMessage)
}

func TestHelpToggle(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, Config{}, "one two three")
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	fullHeight := m.doc.viewport.Height

	m = press(t, m, "?")
	require.True(t, m.showHelp)
	assert.Contains(t, stripANSI(m.helpText), "play/pause")
	assert.Less(t, m.doc.viewport.Height, fullHeight)

	m = press(t, m, "?")
	assert.False(t, m.showHelp)
	assert.Equal(t, fullHeight, m.doc.viewport.Height)
}

func TestQuitStopsPlayback(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, Config{}, "one two three")
	m = press(t, m, " ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tts.StateIdle, m.orch.State())
}

func TestErrorView(t *testing.T) {
	t.Parallel()

	s := stripANSI(errorView(fmt.Errorf("no such file"), true))
	assert.Contains(t, s, "ERROR")
	assert.Contains(t, s, "no such file")
	assert.Contains(t, s, "press any key to exit")
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for _, mode := range []Mode{ModeSource, ModeLive, ModeReading} {
		got, err := ParseMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseMode("split")
	assert.Error(t, err)

	assert.Equal(t, tts.TargetReading, ModeReading.Target())
	assert.Equal(t, tts.TargetEditor, ModeLive.Target())
}
