package tts

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the orchestrator and UI.

// DispatchMsg carries a function that must run on the program's event loop.
// A Mailbox delivering into a Bubble Tea program wraps every function in
// one.
type DispatchMsg struct {
	Fn func()
}

// Run executes the carried function.
func (m DispatchMsg) Run() {
	if m.Fn != nil {
		m.Fn()
	}
}

// StateChangedMsg indicates the playback state has changed.
type StateChangedMsg struct {
	Event StateEvent
}

// HighlightMsg indicates a new word is being spoken.
type HighlightMsg struct {
	Event HighlightEvent
}

// PlaybackEndedMsg indicates a session finished or was stopped.
type PlaybackEndedMsg struct{}

// TTSErrorMsg indicates the backend failed and playback stopped.
type TTSErrorMsg struct {
	Error       error
	Recoverable bool
}

// EventQueue turns orchestrator callbacks into Bubble Tea messages. The
// callbacks fire while Update is running a dispatched function, so they are
// queued and handled by Update once the function returns instead of being
// sent.
type EventQueue struct {
	msgs []tea.Msg
}

// Bind registers the queue as the orchestrator's event sink.
func (q *EventQueue) Bind(o *Orchestrator) {
	o.OnStateChange(func(e StateEvent) { q.push(StateChangedMsg{Event: e}) })
	o.OnHighlight(func(e HighlightEvent) { q.push(HighlightMsg{Event: e}) })
	o.OnEnd(func() { q.push(PlaybackEndedMsg{}) })
	o.OnError(func(err error) {
		q.push(TTSErrorMsg{Error: err, Recoverable: IsRecoverableError(err)})
	})
}

func (q *EventQueue) push(msg tea.Msg) {
	q.msgs = append(q.msgs, msg)
}

// Len returns the number of queued messages.
func (q *EventQueue) Len() int {
	return len(q.msgs)
}

// Flush removes and returns the queued messages.
func (q *EventQueue) Flush() []tea.Msg {
	msgs := q.msgs
	q.msgs = nil
	return msgs
}
