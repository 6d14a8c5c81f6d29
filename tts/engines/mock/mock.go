// Package mock provides a speech backend that speaks silently. It reports
// word boundaries at a fixed reading pace, or only when told to, and can
// reproduce the callback quirks of real platform synthesizers.
package mock

import (
	"sync"
	"time"
	"unicode"

	"github.com/dgnsrekt/readalong/tts"
)

// Engine implements tts.SpeechBackend.
type Engine struct {
	cfg      tts.MockConfig
	voices   []tts.Voice
	manual   bool
	speakErr error

	mu      sync.Mutex
	current *run
	spoken  []string
}

// run is one utterance being spoken.
type run struct {
	u     tts.Utterance
	words []word
	next  int

	mu       sync.Mutex
	paused   bool
	finished bool

	stop     chan struct{}
	stopOnce sync.Once
}

type word struct {
	start, length int
}

// Option configures an Engine.
type Option func(*Engine)

// WithManual disables pacing. Boundaries and ends are then only reported
// through Advance, Boundary, Finish and Fail.
func WithManual() Option {
	return func(e *Engine) { e.manual = true }
}

// WithVoices replaces the default voice list.
func WithVoices(voices []tts.Voice) Option {
	return func(e *Engine) { e.voices = voices }
}

// WithSpeakError makes every Speak call fail with err.
func WithSpeakError(err error) Option {
	return func(e *Engine) { e.speakErr = err }
}

// New creates a mock engine.
func New(cfg tts.MockConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		voices: DefaultVoices(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultVoices returns the voices of a new engine.
func DefaultVoices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-voice-1", Name: "Mock Voice 1", Language: "en-US", Gender: "neutral"},
		{ID: "mock-voice-2", Name: "Mock Voice 2", Language: "en-GB", Gender: "female"},
		{ID: "mock-voice-3", Name: "Mock Voice 3", Language: "en-US", Gender: "male"},
		{ID: "mock-voice-4", Name: "Voix Test", Language: "fr-FR", Gender: "female"},
		{ID: "mock-voice-5", Name: "Testsprecher", Language: "de-DE", Gender: "male"},
	}
}

// Speak starts speaking u, silently dropping any utterance in progress.
func (e *Engine) Speak(u tts.Utterance) error {
	if e.speakErr != nil {
		return e.speakErr
	}

	r := &run{
		u:     u,
		words: splitWords(u.Text),
		stop:  make(chan struct{}),
	}

	e.mu.Lock()
	prev := e.current
	e.current = r
	e.spoken = append(e.spoken, u.Text)
	e.mu.Unlock()

	if prev != nil {
		prev.halt()
	}
	if !e.manual {
		go e.pace(r)
	}
	return nil
}

// Pause suspends the current utterance.
func (e *Engine) Pause() {
	if r := e.active(); r != nil {
		r.setPaused(true)
	}
}

// Resume continues the current utterance.
func (e *Engine) Resume() {
	if r := e.active(); r != nil {
		r.setPaused(false)
	}
}

// Cancel drops the current utterance and fires whatever callback the
// configured cancel behaviour asks for.
func (e *Engine) Cancel() {
	e.mu.Lock()
	r := e.current
	e.current = nil
	e.mu.Unlock()

	if r == nil || !r.halt() {
		return
	}

	switch e.cfg.CancelBehavior {
	case tts.CancelFiresError:
		if r.u.OnError != nil {
			r.u.OnError("interrupted")
		}
	case tts.CancelFiresEnd:
		e.end(r)
	}
}

// Voices returns the engine's voices.
func (e *Engine) Voices() []tts.Voice {
	return e.voices
}

// Spoken returns the text of every utterance handed to Speak.
func (e *Engine) Spoken() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.spoken...)
}

// Current returns the utterance being spoken.
func (e *Engine) Current() (tts.Utterance, bool) {
	if r := e.active(); r != nil {
		return r.u, true
	}
	return tts.Utterance{}, false
}

// Paused reports whether the current utterance is paused.
func (e *Engine) Paused() bool {
	r := e.active()
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Advance reports a boundary for the next word of the current utterance.
// It returns false when every word has been reported.
func (e *Engine) Advance() bool {
	r := e.active()
	if r == nil {
		return false
	}
	w, ok := r.nextWord()
	if !ok {
		return false
	}
	e.boundary(r, w.start, w.length)
	return true
}

// Boundary reports an arbitrary boundary for the current utterance.
func (e *Engine) Boundary(charIndex, charLength int) {
	if r := e.active(); r != nil {
		e.boundary(r, charIndex, charLength)
	}
}

// Finish ends the current utterance.
func (e *Engine) Finish() {
	e.mu.Lock()
	r := e.current
	e.current = nil
	e.mu.Unlock()

	if r != nil && r.halt() {
		e.end(r)
	}
}

// Fail aborts the current utterance with reason.
func (e *Engine) Fail(reason string) {
	e.mu.Lock()
	r := e.current
	e.current = nil
	e.mu.Unlock()

	if r != nil && r.halt() && r.u.OnError != nil {
		r.u.OnError(reason)
	}
}

// pace reports the words of r at the configured reading speed.
func (e *Engine) pace(r *run) {
	ticker := time.NewTicker(e.wordInterval(r.u.Voice.Rate))
	defer ticker.Stop()

	for {
		if !r.wait(ticker.C) {
			return
		}
		w, ok := r.nextWord()
		if !ok {
			break
		}
		e.boundary(r, w.start, w.length)
	}

	e.mu.Lock()
	if e.current == r {
		e.current = nil
	}
	e.mu.Unlock()

	if r.halt() {
		e.end(r)
	}
}

func (e *Engine) boundary(r *run, charIndex, charLength int) {
	if r.u.OnBoundary == nil {
		return
	}
	if e.cfg.OmitCharLength {
		charLength = 0
	}
	r.u.OnBoundary(charIndex, charLength)
}

func (e *Engine) end(r *run) {
	if r.u.OnEnd == nil {
		return
	}
	r.u.OnEnd()
	if e.cfg.DuplicateEnd {
		r.u.OnEnd()
	}
}

func (e *Engine) active() *run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// wordInterval returns the time spent on each word.
func (e *Engine) wordInterval(rate float64) time.Duration {
	wpm := e.cfg.WordsPerMinute
	if wpm <= 0 {
		wpm = tts.DefaultMockConfig().WordsPerMinute
	}
	if rate <= 0 {
		rate = 1
	}
	return time.Duration(float64(time.Minute) / (float64(wpm) * rate))
}

// halt stops r and reports whether this call was the one that stopped it.
func (r *run) halt() bool {
	stopped := false
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.finished = true
		r.mu.Unlock()
		close(r.stop)
		stopped = true
	})
	return stopped
}

// wait blocks for the next tick that arrives while r is not paused. It
// returns false once r is stopped.
func (r *run) wait(tick <-chan time.Time) bool {
	for {
		select {
		case <-r.stop:
			return false
		case <-tick:
			r.mu.Lock()
			paused := r.paused
			r.mu.Unlock()
			if !paused {
				return true
			}
		}
	}
}

func (r *run) setPaused(paused bool) {
	r.mu.Lock()
	r.paused = paused
	r.mu.Unlock()
}

func (r *run) nextWord() (word, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished || r.next >= len(r.words) {
		return word{}, false
	}
	w := r.words[r.next]
	r.next++
	return w, true
}

// splitWords returns the byte span of every whitespace separated word.
func splitWords(text string) []word {
	var words []word
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, word{start, i - start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, word{start, len(text) - start})
	}
	return words
}

var _ tts.SpeechBackend = (*Engine)(nil)
