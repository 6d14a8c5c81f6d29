// Package engines provides speech backends built from other backends.
package engines

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/tts"
)

// DefaultMaxFailures is how many consecutive primary failures switch a
// Fallback to its secondary backend.
const DefaultMaxFailures = 3

// Fallback wraps a primary backend and switches to a secondary one when
// the primary fails consistently. A word boundary from the primary counts
// as a success and resets the failure counter.
type Fallback struct {
	primary     tts.SpeechBackend
	fallback    tts.SpeechBackend
	maxFailures int

	mu            sync.Mutex
	failures      int
	usingFallback bool
	active        tts.SpeechBackend
}

// NewFallback creates a Fallback that gives up on primary after
// maxFailures consecutive failures.
func NewFallback(primary, fallback tts.SpeechBackend, maxFailures int) *Fallback {
	if maxFailures < 1 {
		maxFailures = DefaultMaxFailures
	}
	return &Fallback{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		active:      primary,
	}
}

// Speak speaks u on the active backend. A primary Speak error that reaches
// the failure limit is retried on the fallback at once.
func (f *Fallback) Speak(u tts.Utterance) error {
	f.mu.Lock()
	if f.usingFallback {
		f.active = f.fallback
		f.mu.Unlock()
		return f.fallback.Speak(u)
	}
	f.active = f.primary
	f.mu.Unlock()

	err := f.primary.Speak(f.watch(u))
	if err == nil {
		return nil
	}

	if !f.fail(err) {
		return err
	}
	f.mu.Lock()
	f.active = f.fallback
	f.mu.Unlock()
	if ferr := f.fallback.Speak(u); ferr != nil {
		return fmt.Errorf("both engines failed: %w", errors.Join(err, ferr))
	}
	return nil
}

// watch wraps the callbacks of u so primary successes and failures are
// counted.
func (f *Fallback) watch(u tts.Utterance) tts.Utterance {
	w := u
	w.OnBoundary = func(charIndex, charLength int) {
		f.succeed()
		if u.OnBoundary != nil {
			u.OnBoundary(charIndex, charLength)
		}
	}
	w.OnError = func(reason string) {
		if !tts.IsExpectedCancellation(reason) {
			f.fail(errors.New(reason))
		}
		if u.OnError != nil {
			u.OnError(reason)
		}
	}
	return w
}

func (f *Fallback) succeed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 && !f.usingFallback {
		log.Info("Primary engine recovered", "failures", f.failures)
		f.failures = 0
	}
}

// fail records a primary failure and reports whether it switched to the
// fallback.
func (f *Fallback) fail(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return false
	}

	f.failures++
	log.Warn("Primary engine failed", "attempt", f.failures, "max", f.maxFailures, "error", err)
	if f.failures < f.maxFailures {
		return false
	}
	log.Warn("Switching to fallback engine", "failures", f.failures)
	f.usingFallback = true
	return true
}

// Pause implements tts.SpeechBackend.
func (f *Fallback) Pause() {
	f.current().Pause()
}

// Resume implements tts.SpeechBackend.
func (f *Fallback) Resume() {
	f.current().Resume()
}

// Cancel implements tts.SpeechBackend.
func (f *Fallback) Cancel() {
	f.current().Cancel()
}

// Voices returns the voices of the backend new utterances go to.
func (f *Fallback) Voices() []tts.Voice {
	f.mu.Lock()
	usingFallback := f.usingFallback
	f.mu.Unlock()

	if usingFallback {
		return f.fallback.Voices()
	}
	return f.primary.Voices()
}

// UsingFallback reports whether the primary has been given up on.
func (f *Fallback) UsingFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usingFallback
}

// Reset goes back to the primary backend.
func (f *Fallback) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = 0
	f.usingFallback = false
	log.Info("Reset to primary engine")
}

// Status describes which backend is in use.
func (f *Fallback) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return fmt.Sprintf("Using fallback engine (primary failed %d times)", f.failures)
	}
	return fmt.Sprintf("Using primary engine (failures: %d/%d)", f.failures, f.maxFailures)
}

func (f *Fallback) current() tts.SpeechBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

var _ tts.SpeechBackend = (*Fallback)(nil)
