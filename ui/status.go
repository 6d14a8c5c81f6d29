package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/readalong/tts"
)

// StatusDisplay holds what the status bar shows about playback.
type StatusDisplay struct {
	state        tts.PlaybackState
	chunk        int
	totalChunks  int
	word         string
	errorMessage string
}

// NewStatusDisplay creates an idle status display.
func NewStatusDisplay() *StatusDisplay {
	return &StatusDisplay{chunk: -1}
}

// Update applies a state change.
func (s *StatusDisplay) Update(ev tts.StateEvent) {
	s.state = ev.State
	s.chunk = ev.Chunk
	s.totalChunks = ev.TotalChunks
	if ev.State == tts.StateIdle {
		s.word = ""
	}
	if ev.State == tts.StatePlaying {
		s.errorMessage = ""
	}
}

// SetWord records the word being spoken.
func (s *StatusDisplay) SetWord(word string) {
	s.word = word
}

// Word returns the word being spoken.
func (s *StatusDisplay) Word() string {
	return s.word
}

// SetError records a playback failure.
func (s *StatusDisplay) SetError(err error) {
	if err == nil {
		s.errorMessage = ""
		return
	}
	s.errorMessage = errorText(err)
}

// errorText puts the backend's reason ahead of the generic message so it
// survives truncation.
func errorText(err error) string {
	var ttsErr *tts.TTSError
	if !errors.As(err, &ttsErr) || ttsErr.Err == nil {
		return err.Error()
	}
	reason, ok := ttsErr.Context["reason"]
	if !ok || fmt.Sprint(reason) == "" {
		return ttsErr.Error()
	}
	return fmt.Sprintf("%v: %s", reason, ttsErr.Err)
}

// Progress returns the fraction of chunks already started.
func (s *StatusDisplay) Progress() float64 {
	return tts.Status{State: s.state, Chunk: s.chunk, TotalChunks: s.totalChunks}.Progress()
}

// CompactStatus returns a compact status string for the status bar.
func (s *StatusDisplay) CompactStatus() string {
	if s.state == tts.StateIdle {
		if s.errorMessage != "" {
			errorStyle := lipgloss.NewStyle().Foreground(stateColor(s.state, true))
			return errorStyle.Render("✗ " + truncate.StringWithTail(s.errorMessage, 40, ellipsis))
		}
		return ""
	}

	statusStyle := lipgloss.NewStyle().Foreground(stateColor(s.state, false))
	status := statusStyle.Render(stateIcon(s.state) + " TTS")

	if s.totalChunks > 0 {
		counterStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
		status += counterStyle.Render(fmt.Sprintf(" %d/%d", s.chunk+1, s.totalChunks))
	}

	if s.word != "" {
		status += " " + truncate.StringWithTail(s.word, 20, ellipsis)
	}
	return status
}

// ProgressBar returns a visual progress bar.
func (s *StatusDisplay) ProgressBar(width int) string {
	if s.totalChunks <= 0 || width < 10 {
		return ""
	}

	filledWidth := min(int(s.Progress()*float64(width)), width)
	filled := strings.Repeat("█", filledWidth)
	empty := strings.Repeat("░", width-filledWidth)

	filledStyle := lipgloss.NewStyle().Foreground(stateColor(s.state, false))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))

	return filledStyle.Render(filled) + emptyStyle.Render(empty)
}

// IsActive returns true if a session is playing or paused.
func (s *StatusDisplay) IsActive() bool {
	return s.state == tts.StatePlaying || s.state == tts.StatePaused
}

// Reset resets the status display to initial state.
func (s *StatusDisplay) Reset() {
	*s = StatusDisplay{chunk: -1}
}

func stateColor(state tts.PlaybackState, failed bool) lipgloss.Color {
	if failed {
		return lipgloss.Color("#FF0000") // Red
	}
	switch state {
	case tts.StatePlaying:
		return lipgloss.Color("#00FF00") // Green
	case tts.StatePaused:
		return lipgloss.Color("#FFFF00") // Yellow
	default:
		return lipgloss.Color("#666666") // Dark gray
	}
}

func stateIcon(state tts.PlaybackState) string {
	switch state {
	case tts.StatePlaying:
		return "▶"
	case tts.StatePaused:
		return "⏸"
	default:
		return "■"
	}
}
