package tts

import (
	"golang.org/x/net/html"

	"github.com/dgnsrekt/readalong/tts/textmap"
)

// SpeechBackend is a speech synthesizer. Calls return immediately; progress
// is reported through the callbacks of the Utterance, possibly on another
// goroutine.
type SpeechBackend interface {
	// Speak starts speaking u. An error means the utterance was rejected
	// outright and no callback will fire.
	Speak(u Utterance) error

	// Pause suspends the current utterance.
	Pause()

	// Resume continues a paused utterance.
	Resume()

	// Cancel drops the current utterance. Backends may or may not fire
	// OnEnd or OnError afterwards.
	Cancel()

	// Voices returns the voices the backend can speak with.
	Voices() []Voice
}

// Utterance is one chunk of text handed to a SpeechBackend.
type Utterance struct {
	Text  string
	Voice VoiceParams

	// OnBoundary is called when a word starts. charIndex is a byte offset
	// into Text; charLength may be zero when the backend does not know it.
	OnBoundary func(charIndex, charLength int)

	// OnEnd is called when the utterance finishes. Some backends call it
	// twice or not at all after Cancel.
	OnEnd func()

	// OnError is called with a backend specific reason.
	OnError func(reason string)
}

// VoiceParams are the synthesis parameters of an utterance.
type VoiceParams struct {
	Voice  string  // Voice identifier, empty for the backend default
	Rate   float64 // Speech rate multiplier (1.0 = normal)
	Pitch  float64 // Pitch multiplier (1.0 = normal)
	Volume float64 // Volume level (0.0 to 1.0)
}

// Voice represents a TTS voice configuration.
type Voice struct {
	ID       string `yaml:"id"`       // Voice identifier
	Name     string `yaml:"name"`     // Human-readable name
	Language string `yaml:"language"` // Language tag (e.g., "en-US")
	Gender   string `yaml:"gender"`   // Voice gender
}

// EditorSurface is an editable view of the source text.
type EditorSurface interface {
	// Text returns the full source text.
	Text() string

	// Selection returns the selected source range, if any.
	Selection() (textmap.EditorRange, bool)

	// Cursor returns the cursor offset in the source text.
	Cursor() int

	// SetDecoration highlights a source range, replacing any previous one.
	SetDecoration(r textmap.EditorRange)

	// ClearDecoration removes the highlight.
	ClearDecoration()

	// DecorationVisible reports whether a decoration over r would actually
	// be displayed. It is false when r falls inside a region the editor
	// replaces with rendered content.
	DecorationVisible(r textmap.EditorRange) bool

	// WidgetContainer returns the DOM holding the editor's rendered
	// widgets, or nil when there are none.
	WidgetContainer() *html.Node

	// Subscribe registers fn to be called after every document change.
	Subscribe(fn func()) (unsubscribe func())
}

// ReadingSurface is a read-only rendered view of the source text.
type ReadingSurface interface {
	// Container returns the DOM the view displays.
	Container() *html.Node
}

// Scroller keeps the active highlight in view.
type Scroller interface {
	// ScrollToNode brings a rendered node into view.
	ScrollToNode(n *html.Node)

	// ScrollToOffset brings a source offset into view.
	ScrollToOffset(offset int)
}

// Dispatcher runs functions on the orchestrator's event loop. Post must not
// block.
type Dispatcher interface {
	Post(fn func())
}

// Scheduler defers functions to the next display refresh.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// Target selects the surface a playback session highlights on.
type Target int

const (
	// TargetEditor highlights on the editable surface.
	TargetEditor Target = iota
	// TargetReading highlights on the rendered reading surface.
	TargetReading
)

// String returns the string representation of the target.
func (t Target) String() string {
	switch t {
	case TargetEditor:
		return "editor"
	case TargetReading:
		return "reading"
	default:
		return "unknown"
	}
}
