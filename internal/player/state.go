package player

import "sync"

// PlayState represents the group-level playback state.
type PlayState int

const (
	// StatePaused indicates playback is halted and can be resumed.
	StatePaused PlayState = iota
	// StatePlaying indicates playback is actively progressing.
	StatePlaying
	// StateWaiting indicates at least one element is buffering.
	StateWaiting
	// StateFinished indicates the stream reached end of stream.
	StateFinished
)

// String returns a human-readable label for the play state.
func (s PlayState) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateWaiting:
		return "waiting"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read of the playback state at one instant.
type Snapshot struct {
	Position       float64
	Duration       float64
	BufferPosition float64
	TrimStart      float64
	TrimEnd        float64
	PlayState      PlayState
	Live           bool
}

// StateStore is the single source of truth for shared playback state.
// The engine reads it via Snapshot and publishes master-derived facts through
// the setters. Writes carry an intent flag so consumers can distinguish user
// actions from engine-internal updates. Implementations can be in-memory or
// bridge to an external UI layer; the engine does not need to know which.
type StateStore interface {
	Snapshot() Snapshot

	// SetPosition publishes the playback position. userSeek marks the write
	// as a discontinuous jump rather than continuous progress.
	SetPosition(t float64, userSeek bool)

	// SetPlayState publishes the play state. userAction marks the write as an
	// explicit user intent rather than an engine-derived transition.
	SetPlayState(s PlayState, userAction bool)

	SetDuration(t float64)
	SetBufferPosition(t float64)
}

// MemoryState is a concurrency-safe in-memory implementation of StateStore.
type MemoryState struct {
	mu       sync.RWMutex
	snap     Snapshot
	onChange func(Snapshot)
}

// NewMemoryState returns an empty store in the paused state.
func NewMemoryState() *MemoryState {
	return &MemoryState{}
}

// OnChange installs a callback invoked after every write with the new
// snapshot. Used by the metrics exporter; may be left unset. The callback
// runs outside the store's lock.
func (m *MemoryState) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Snapshot implements StateStore.Snapshot.
func (m *MemoryState) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// SetPosition implements StateStore.SetPosition.
func (m *MemoryState) SetPosition(t float64, userSeek bool) {
	m.mu.Lock()
	m.snap.Position = t
	snap, fn := m.snap, m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetPlayState implements StateStore.SetPlayState.
func (m *MemoryState) SetPlayState(s PlayState, userAction bool) {
	m.mu.Lock()
	m.snap.PlayState = s
	snap, fn := m.snap, m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetDuration implements StateStore.SetDuration.
func (m *MemoryState) SetDuration(t float64) {
	m.mu.Lock()
	m.snap.Duration = t
	snap, fn := m.snap, m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetBufferPosition implements StateStore.SetBufferPosition.
func (m *MemoryState) SetBufferPosition(t float64) {
	m.mu.Lock()
	m.snap.BufferPosition = t
	snap, fn := m.snap, m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetTrim configures the trim window. A zero end means no trim end.
func (m *MemoryState) SetTrim(start, end float64) {
	m.mu.Lock()
	m.snap.TrimStart = start
	m.snap.TrimEnd = end
	m.mu.Unlock()
}

// SetLive flags the stream as live (non-seekable, unbounded). Live streams
// are exempt from drift correction.
func (m *MemoryState) SetLive(live bool) {
	m.mu.Lock()
	m.snap.Live = live
	m.mu.Unlock()
}
