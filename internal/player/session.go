package player

import "sync"

// Status is the externally visible view of a playback session, combining the
// state store snapshot with the engine's aggregates.
type Status struct {
	Position       float64  `json:"position"`
	Duration       float64  `json:"duration"`
	BufferPosition float64  `json:"buffer_position"`
	PlayState      string   `json:"play_state"`
	Live           bool     `json:"live"`
	Waiting        int      `json:"waiting"`
	Master         string   `json:"master,omitempty"`
	Elements       []string `json:"elements"`
}

// Session bundles the state store, the synchronization engine, and the
// attached media elements, and exposes the user-level playback intents. It is
// the single place where user-tagged writes enter the store; the engine's
// restore guard relies on those writes being visible in its snapshots.
type Session struct {
	store  *MemoryState
	engine *Engine

	mu       sync.Mutex
	elements []MediaElement
}

// NewSession wires a session around the given store and engine.
func NewSession(store *MemoryState, engine *Engine) *Session {
	return &Session{store: store, engine: engine}
}

// Attach registers the element with the engine and tracks it for seeks.
// The first attached element is the timing master.
func (s *Session) Attach(el MediaElement) {
	s.mu.Lock()
	s.elements = append(s.elements, el)
	s.mu.Unlock()
	s.engine.Register(el)
}

// Detach unregisters the element.
func (s *Session) Detach(el MediaElement) {
	s.mu.Lock()
	for i, existing := range s.elements {
		if existing == el {
			s.elements = append(s.elements[:i], s.elements[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.engine.Unregister(el)
}

// Play publishes a user play intent.
func (s *Session) Play() {
	s.store.SetPlayState(StatePlaying, true)
}

// Pause publishes a user pause intent.
func (s *Session) Pause() {
	s.store.SetPlayState(StatePaused, true)
}

// Seek publishes a user seek and moves every element to the target. Each
// element gets a seek notification so the engine can stall it if the target
// is not buffered yet.
func (s *Session) Seek(t float64) {
	s.store.SetPosition(t, true)

	s.mu.Lock()
	elements := make([]MediaElement, len(s.elements))
	copy(elements, s.elements)
	s.mu.Unlock()

	for _, el := range elements {
		el.SetPosition(t)
		s.engine.Dispatch(el, Event{Type: EventSeekRequested, Time: t})
	}
}

// Status returns the current session status.
func (s *Session) Status() Status {
	snap := s.store.Snapshot()
	elements := s.engine.Elements()
	var master string
	if len(elements) > 0 {
		master = elements[0]
	}
	return Status{
		Position:       snap.Position,
		Duration:       snap.Duration,
		BufferPosition: snap.BufferPosition,
		PlayState:      snap.PlayState.String(),
		Live:           snap.Live,
		Waiting:        s.engine.WaitingCount(),
		Master:         master,
		Elements:       elements,
	}
}
