package tts

// PlaybackState represents the state of playback.
type PlaybackState int

const (
	// StateIdle indicates nothing is playing.
	StateIdle PlaybackState = iota
	// StatePlaying indicates speech is in progress.
	StatePlaying
	// StatePaused indicates speech is suspended.
	StatePaused
)

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the orchestrator.
type Status struct {
	State       PlaybackState // Current state of playback
	Chunk       int           // Current chunk index (0-based)
	TotalChunks int           // Total number of chunks in the session
	LastError   error         // Last backend error
}

// IsActive returns true if a session is playing or paused.
func (s Status) IsActive() bool {
	return s.State == StatePlaying || s.State == StatePaused
}

// CanPause returns true if playback can be paused.
func (s Status) CanPause() bool {
	return s.State == StatePlaying
}

// CanResume returns true if playback can be resumed.
func (s Status) CanResume() bool {
	return s.State == StatePaused
}

// Progress returns the fraction of chunks already started.
func (s Status) Progress() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(s.Chunk+1) / float64(s.TotalChunks)
}

// StateMachine manages playback state transitions.
type StateMachine struct {
	current     PlaybackState
	transitions map[PlaybackState][]PlaybackState
	onEnter     map[PlaybackState]func()
}

// NewStateMachine creates a new state machine with valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[PlaybackState][]PlaybackState{
			StateIdle:    {StatePlaying},
			StatePlaying: {StatePaused, StateIdle},
			StatePaused:  {StatePlaying, StateIdle},
		},
		onEnter: make(map[PlaybackState]func()),
	}
}

// CanTransition reports whether moving to the given state is allowed.
func (sm *StateMachine) CanTransition(to PlaybackState) bool {
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			return true
		}
	}
	return false
}

// Transition attempts to transition to the specified state.
func (sm *StateMachine) Transition(to PlaybackState) bool {
	if !sm.CanTransition(to) {
		return false
	}

	sm.current = to

	if enterFn, ok := sm.onEnter[to]; ok && enterFn != nil {
		enterFn()
	}

	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() PlaybackState {
	return sm.current
}

// OnEnter registers a callback for entering a state.
func (sm *StateMachine) OnEnter(state PlaybackState, fn func()) {
	sm.onEnter[state] = fn
}
