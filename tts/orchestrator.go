// Package tts reads formatted text aloud through a speech backend and keeps
// a highlight on the word being spoken.
package tts

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/dgnsrekt/readalong/tts/dom"
	"github.com/dgnsrekt/readalong/tts/prep"
	ttssync "github.com/dgnsrekt/readalong/tts/sync"
	"github.com/dgnsrekt/readalong/tts/textmap"
)

// StateEvent reports a state change or a move to another chunk.
type StateEvent struct {
	State       PlaybackState
	Chunk       int
	TotalChunks int
}

// HighlightEvent reports the word currently being spoken.
type HighlightEvent struct {
	Target Target
	// Range is the word's source range. It is only meaningful when Mapped
	// is true.
	Range  textmap.EditorRange
	Mapped bool
	// Word is the spoken text as it appears in the chunk.
	Word string
	// PlainOffset is the word's offset in the full plain text.
	PlainOffset int
	Chunk       int
	// Node is the rendered element holding the highlight, when the word
	// was located in a DOM.
	Node *html.Node
}

// Orchestrator drives playback sessions: it hands chunks to the backend,
// turns boundary events into highlights and tracks the playback state.
//
// An Orchestrator is not safe for concurrent use. Every method must be
// called from the event loop behind its Dispatcher, and backend callbacks
// are routed through that Dispatcher.
type Orchestrator struct {
	backend    SpeechBackend
	dispatcher Dispatcher
	scheduler  Scheduler
	preparer   *prep.Preparer

	editor   EditorSurface
	reading  ReadingSurface
	scroller Scroller

	readingSearcher *dom.Searcher
	widgetSearcher  *dom.Searcher

	logger *log.Logger

	machine *StateMachine
	session *session
	nextID  uint64
	lastErr error

	onStateChange func(StateEvent)
	onHighlight   func(HighlightEvent)
	onEnd         func()
	onError       func(error)
}

// session is the state of one play call.
type session struct {
	id          uint64
	prepared    *prep.PreparedText
	target      Target
	settings    Settings
	voice       string
	chunk       int
	current     *utterance
	word        string
	cancelFrame func()
	unsubscribe func()
}

// utterance tracks one chunk handed to the backend. Callbacks carry it so
// that late or repeated callbacks can be recognised and ignored.
type utterance struct {
	session uint64
	index   int
	ended   bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDispatcher routes backend callbacks through d.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithScheduler defers highlight application through s.
func WithScheduler(s Scheduler) Option {
	return func(o *Orchestrator) { o.scheduler = s }
}

// WithPreparer sets the preparer used to convert and chunk sources.
func WithPreparer(p *prep.Preparer) Option {
	return func(o *Orchestrator) { o.preparer = p }
}

// WithEditor attaches the editable surface.
func WithEditor(e EditorSurface) Option {
	return func(o *Orchestrator) { o.editor = e }
}

// WithReadingSurface attaches the rendered reading surface.
func WithReadingSurface(r ReadingSurface) Option {
	return func(o *Orchestrator) { o.reading = r }
}

// WithScroller enables auto-scrolling through s.
func WithScroller(s Scroller) Option {
	return func(o *Orchestrator) { o.scroller = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRegistry makes DOM highlights go through reg instead of modifying
// the rendered documents.
func WithRegistry(reg *dom.Registry) Option {
	return func(o *Orchestrator) {
		o.readingSearcher = dom.NewSearcher(dom.WithRegistry(reg))
		o.widgetSearcher = dom.NewSearcher(dom.WithRegistry(reg))
	}
}

// NewOrchestrator creates an idle orchestrator speaking through backend.
func NewOrchestrator(backend SpeechBackend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:         backend,
		dispatcher:      ttssync.Immediate{},
		scheduler:       ttssync.Immediate{},
		preparer:        prep.NewPreparer(prep.DefaultCacheSize),
		readingSearcher: dom.NewSearcher(),
		widgetSearcher:  dom.NewSearcher(),
		logger:          log.Default().WithPrefix("tts"),
		machine:         NewStateMachine(),
	}
	for _, opt := range opts {
		opt(o)
	}
	for _, st := range []PlaybackState{StateIdle, StatePlaying, StatePaused} {
		o.machine.OnEnter(st, o.emitState)
	}
	return o
}

// OnStateChange registers a callback for state and chunk changes.
func (o *Orchestrator) OnStateChange(fn func(StateEvent)) {
	o.onStateChange = fn
}

// OnHighlight registers a callback for highlighted words.
func (o *Orchestrator) OnHighlight(fn func(HighlightEvent)) {
	o.onHighlight = fn
}

// OnEnd registers a callback for the end of playback.
func (o *Orchestrator) OnEnd(fn func()) {
	o.onEnd = fn
}

// OnError registers a callback for backend failures.
func (o *Orchestrator) OnError(fn func(error)) {
	o.onError = fn
}

// Play stops any current session and starts reading source aloud.
// baseOffset is the offset of source within the document, so that
// highlights are reported in document offsets. A source with nothing to
// speak leaves the orchestrator idle and returns nil.
func (o *Orchestrator) Play(source string, settings Settings, target Target, baseOffset int) error {
	o.Stop()

	switch {
	case target == TargetReading && o.reading == nil,
		target == TargetEditor && o.editor == nil:
		return fmt.Errorf("play on %s: %w", target, ErrNoSurface)
	}

	prepared, ok := o.preparer.Prepare(source, settings.ChunkSize, baseOffset)
	if !ok {
		o.logger.Debug("nothing to speak", "bytes", len(source))
		return nil
	}

	o.nextID++
	s := &session{
		id:       o.nextID,
		prepared: prepared,
		target:   target,
		settings: settings,
		voice:    o.resolveVoice(settings.Voice),
	}
	o.session = s
	o.lastErr = nil

	switch target {
	case TargetReading:
		o.readingSearcher.Prepare(o.reading.Container())
	case TargetEditor:
		if wc := o.editor.WidgetContainer(); wc != nil {
			o.widgetSearcher.Prepare(wc)
		} else {
			o.widgetSearcher.Reset()
		}
	}

	if o.editor != nil {
		id := s.id
		s.unsubscribe = o.editor.Subscribe(func() {
			o.dispatcher.Post(func() {
				if o.session != nil && o.session.id == id {
					o.DocumentChanged()
				}
			})
		})
	}

	o.logger.Debug("playing", "target", target, "chunks", len(prepared.Chunks), "base", baseOffset)
	o.machine.Transition(StatePlaying)
	o.speak()
	return nil
}

// PlayFromEditor reads the editor's selection, or the text after the cursor,
// or the whole document.
func (o *Orchestrator) PlayFromEditor(settings Settings, target Target) error {
	if o.editor == nil {
		return fmt.Errorf("play from editor: %w", ErrNoSurface)
	}

	text := o.editor.Text()
	if sel, ok := o.editor.Selection(); ok {
		from, to := clamp(sel.From, 0, len(text)), clamp(sel.To, 0, len(text))
		if from < to {
			return o.Play(text[from:to], settings, target, from)
		}
	}
	if c := o.editor.Cursor(); c > 0 && c < len(text) {
		return o.Play(text[c:], settings, target, c)
	}
	return o.Play(text, settings, target, 0)
}

// Pause suspends playback. It does nothing unless playing.
func (o *Orchestrator) Pause() {
	if !o.Status().CanPause() {
		return
	}
	o.backend.Pause()
	o.machine.Transition(StatePaused)
}

// Resume continues paused playback. It does nothing unless paused.
func (o *Orchestrator) Resume() {
	if !o.Status().CanResume() {
		return
	}
	o.backend.Resume()
	o.machine.Transition(StatePlaying)
}

// TogglePause pauses when playing and resumes when paused.
func (o *Orchestrator) TogglePause() {
	switch o.machine.Current() {
	case StatePlaying:
		o.Pause()
	case StatePaused:
		o.Resume()
	}
}

// Stop cancels the backend, clears every highlight and returns to idle.
// Nothing scheduled by the session runs afterwards. It does nothing when
// idle.
func (o *Orchestrator) Stop() {
	if o.session == nil {
		return
	}
	o.teardown(true)
	o.machine.Transition(StateIdle)
	o.emitEnd()
}

// DocumentChanged stops playback because the source text changed.
func (o *Orchestrator) DocumentChanged() {
	if o.session != nil {
		o.logger.Debug("document changed, stopping")
	}
	o.Stop()
}

// SurfaceChanged stops playback because the active view changed.
func (o *Orchestrator) SurfaceChanged() {
	if o.session != nil {
		o.logger.Debug("surface changed, stopping")
	}
	o.Stop()
}

// State returns the playback state.
func (o *Orchestrator) State() PlaybackState {
	return o.machine.Current()
}

// Status returns a snapshot of the orchestrator.
func (o *Orchestrator) Status() Status {
	st := Status{State: o.machine.Current(), LastError: o.lastErr}
	if s := o.session; s != nil {
		st.Chunk = s.chunk
		st.TotalChunks = len(s.prepared.Chunks)
	}
	return st
}

// Prepared returns the prepared text of the current session, or nil.
func (o *Orchestrator) Prepared() *prep.PreparedText {
	if o.session == nil {
		return nil
	}
	return o.session.prepared
}

// CurrentWord returns the most recently spoken word of the session.
func (o *Orchestrator) CurrentWord() string {
	if o.session == nil {
		return ""
	}
	return o.session.word
}

// Voices returns the backend's voices.
func (o *Orchestrator) Voices() []Voice {
	return o.backend.Voices()
}

// speak hands the session's current chunk to the backend.
func (o *Orchestrator) speak() {
	s := o.session
	u := &utterance{session: s.id, index: s.chunk}
	s.current = u

	params := s.settings.VoiceParams()
	params.Voice = s.voice

	err := o.backend.Speak(Utterance{
		Text:  s.prepared.Chunks[s.chunk],
		Voice: params,
		OnBoundary: func(charIndex, charLength int) {
			o.dispatcher.Post(func() { o.handleBoundary(u, charIndex, charLength) })
		},
		OnEnd: func() {
			o.dispatcher.Post(func() { o.handleEnd(u) })
		},
		OnError: func(reason string) {
			o.dispatcher.Post(func() { o.handleError(u, reason) })
		},
	})
	if err != nil {
		o.fail(u, NewTTSError(fmt.Errorf("%w: %w", ErrBackendFailed, err), "backend", "speak").
			WithContext("chunk", u.index))
	}
}

func (o *Orchestrator) isCurrent(u *utterance) bool {
	return o.session != nil && o.session.id == u.session && o.session.current == u
}

func (o *Orchestrator) handleBoundary(u *utterance, charIndex, charLength int) {
	if u.ended || !o.isCurrent(u) || o.machine.Current() != StatePlaying {
		return
	}
	s := o.session

	chunk := s.prepared.Chunks[u.index]
	word, start, ok := spokenWord(chunk, charIndex, charLength)
	if !ok {
		return
	}

	plain := s.prepared.ChunkOffsets[u.index] + start
	ev := HighlightEvent{
		Target:      s.target,
		Word:        word,
		PlainOffset: plain,
		Chunk:       u.index,
	}
	ev.Range, ev.Mapped = s.prepared.ToEditorRange(plain, plain+len(word))
	s.word = word

	if s.cancelFrame != nil {
		s.cancelFrame()
	}
	id := s.id
	s.cancelFrame = o.scheduler.Schedule(func() {
		if o.session == nil || o.session.id != id {
			return
		}
		o.session.cancelFrame = nil
		o.applyHighlight(ev)
	})
}

// applyHighlight shows ev on the session's surface and reports it.
func (o *Orchestrator) applyHighlight(ev HighlightEvent) {
	s := o.session

	switch s.target {
	case TargetReading:
		ev.Node = o.highlightInDOM(o.readingSearcher, o.reading.Container(), ev.Word)

	case TargetEditor:
		if !ev.Mapped {
			o.logger.Debug("skipping highlight", "err", ErrNoMapping, "plain", ev.PlainOffset)
			return
		}
		if o.editor.DecorationVisible(ev.Range) {
			o.widgetSearcher.Clear()
			o.editor.SetDecoration(ev.Range)
		} else {
			o.editor.ClearDecoration()
			if wc := o.editor.WidgetContainer(); wc != nil {
				ev.Node = o.highlightInDOM(o.widgetSearcher, wc, ev.Word)
			}
		}
	}

	if !ev.Mapped && ev.Node == nil {
		return
	}

	if s.settings.AutoScroll && o.scroller != nil {
		if ev.Node != nil {
			o.scroller.ScrollToNode(ev.Node)
		} else {
			o.scroller.ScrollToOffset(ev.Range.From)
		}
	}

	if o.onHighlight != nil {
		o.onHighlight(ev)
	}
}

// highlightInDOM finds word in container and highlights it, returning the
// highlighted node or nil on a miss.
func (o *Orchestrator) highlightInDOM(searcher *dom.Searcher, container *html.Node, word string) *html.Node {
	r, ok := searcher.Find(container, word)
	if !ok {
		o.logger.Debug("skipping highlight", "err", ErrSearchMiss, "word", word)
		return nil
	}
	node, err := searcher.Highlight(r)
	if err != nil {
		o.logger.Debug("skipping highlight", "err", err, "word", word)
		return nil
	}
	return node
}

func (o *Orchestrator) handleEnd(u *utterance) {
	if u.ended {
		return
	}
	u.ended = true
	if !o.isCurrent(u) {
		return
	}

	s := o.session
	if s.chunk+1 < len(s.prepared.Chunks) {
		s.chunk++
		o.emitState()
		o.speak()
		return
	}

	o.logger.Debug("playback finished", "chunks", len(s.prepared.Chunks))
	o.teardown(false)
	o.machine.Transition(StateIdle)
	o.emitEnd()
}

func (o *Orchestrator) handleError(u *utterance, reason string) {
	if u.ended || !o.isCurrent(u) {
		o.logger.Debug("ignoring stale backend error", "reason", reason)
		return
	}
	if IsExpectedCancellation(reason) {
		o.logger.Debug("ignoring expected cancellation", "reason", reason)
		return
	}
	o.fail(u, NewTTSError(ErrBackendFailed, "backend", "speak").
		WithContext("reason", reason).
		WithContext("chunk", u.index))
}

// fail stops the session and reports err.
func (o *Orchestrator) fail(u *utterance, err *TTSError) {
	u.ended = true
	o.logger.Error("playback failed", "err", err)
	o.Stop()
	o.lastErr = err
	if o.onError != nil {
		o.onError(err)
	}
}

// teardown detaches the session and releases everything it holds.
func (o *Orchestrator) teardown(cancelBackend bool) {
	s := o.session
	o.session = nil

	if s.cancelFrame != nil {
		s.cancelFrame()
		s.cancelFrame = nil
	}
	if s.current != nil {
		s.current.ended = true
	}
	if cancelBackend {
		o.backend.Cancel()
	}

	o.readingSearcher.Clear()
	o.widgetSearcher.Clear()
	if o.editor != nil {
		o.editor.ClearDecoration()
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (o *Orchestrator) resolveVoice(query string) string {
	if query == "" {
		return ""
	}
	v, err := ResolveVoice(o.backend.Voices(), query)
	if err != nil {
		o.logger.Warn("voice not found, using backend default", "voice", query)
		return ""
	}
	return v.ID
}

func (o *Orchestrator) emitState() {
	if o.onStateChange == nil {
		return
	}
	st := o.Status()
	o.onStateChange(StateEvent{State: st.State, Chunk: st.Chunk, TotalChunks: st.TotalChunks})
}

func (o *Orchestrator) emitEnd() {
	if o.onEnd != nil {
		o.onEnd()
	}
}

// spokenWord extracts the word a boundary event points at. A missing length
// is inferred by scanning to the next whitespace. ok is false for
// whitespace-only or out-of-range boundaries.
func spokenWord(chunk string, charIndex, charLength int) (word string, start int, ok bool) {
	if charIndex < 0 || charIndex >= len(chunk) {
		return "", 0, false
	}
	if charLength <= 0 {
		charLength = wordLength(chunk, charIndex)
	}
	end := min(charIndex+charLength, len(chunk))

	raw := chunk[charIndex:end]
	word = strings.TrimLeftFunc(raw, unicode.IsSpace)
	start = charIndex + len(raw) - len(word)
	word = strings.TrimRightFunc(word, unicode.IsSpace)
	if word == "" {
		return "", 0, false
	}
	return word, start, true
}

// wordLength returns the distance from at to the next whitespace or the end
// of text, and at least 1.
func wordLength(text string, at int) int {
	i := at
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return max(i-at, 1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
