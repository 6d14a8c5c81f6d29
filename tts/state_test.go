package tts

import (
	"testing"
)

// TestPlaybackStateString tests the String() method for PlaybackState.
func TestPlaybackStateString(t *testing.T) {
	tests := []struct {
		state    PlaybackState
		expected string
	}{
		{StateIdle, "idle"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{PlaybackState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.state.String(); result != tt.expected {
				t.Errorf("PlaybackState.String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestStatusPredicates tests IsActive, CanPause and CanResume.
func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		state     PlaybackState
		active    bool
		canPause  bool
		canResume bool
	}{
		{StateIdle, false, false, false},
		{StatePlaying, true, true, false},
		{StatePaused, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := Status{State: tt.state}
			if got := s.IsActive(); got != tt.active {
				t.Errorf("Status.IsActive() = %v, want %v", got, tt.active)
			}
			if got := s.CanPause(); got != tt.canPause {
				t.Errorf("Status.CanPause() = %v, want %v", got, tt.canPause)
			}
			if got := s.CanResume(); got != tt.canResume {
				t.Errorf("Status.CanResume() = %v, want %v", got, tt.canResume)
			}
		})
	}
}

// TestStatusProgress tests the Progress() method.
func TestStatusProgress(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		expected float64
	}{
		{"no chunks", Status{}, 0},
		{"first of four", Status{Chunk: 0, TotalChunks: 4}, 0.25},
		{"last of four", Status{Chunk: 3, TotalChunks: 4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Progress(); got != tt.expected {
				t.Errorf("Status.Progress() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestStateMachineTransitions tests every allowed and forbidden transition.
func TestStateMachineTransitions(t *testing.T) {
	tests := []struct {
		from PlaybackState
		to   PlaybackState
		ok   bool
	}{
		{StateIdle, StatePlaying, true},
		{StateIdle, StatePaused, false},
		{StateIdle, StateIdle, false},
		{StatePlaying, StatePaused, true},
		{StatePlaying, StateIdle, true},
		{StatePlaying, StatePlaying, false},
		{StatePaused, StatePlaying, true},
		{StatePaused, StateIdle, true},
		{StatePaused, StatePaused, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			sm := NewStateMachine()
			sm.current = tt.from

			if got := sm.Transition(tt.to); got != tt.ok {
				t.Errorf("Transition(%v) = %v, want %v", tt.to, got, tt.ok)
			}

			want := tt.from
			if tt.ok {
				want = tt.to
			}
			if sm.Current() != want {
				t.Errorf("Current() = %v, want %v", sm.Current(), want)
			}
		})
	}
}

// TestStateMachineCallbacks tests that enter callbacks run after the state
// changes.
func TestStateMachineCallbacks(t *testing.T) {
	sm := NewStateMachine()

	var calls []string
	sm.OnEnter(StatePlaying, func() { calls = append(calls, "enter "+sm.Current().String()) })

	if !sm.Transition(StatePlaying) {
		t.Fatal("Transition(StatePlaying) = false, want true")
	}

	if len(calls) != 1 || calls[0] != "enter playing" {
		t.Errorf("callbacks = %v, want [enter playing]", calls)
	}

	calls = nil
	sm.Transition(StatePlaying)
	if len(calls) != 0 {
		t.Errorf("rejected transition ran callbacks: %v", calls)
	}
}
