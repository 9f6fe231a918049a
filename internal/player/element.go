package player

// TimeRange is a contiguous buffered interval of media time, in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// Contains reports whether t falls inside the range (inclusive bounds).
func (r TimeRange) Contains(t float64) bool {
	return t >= r.Start && t <= r.End
}

// MediaElement is a playable source participating in synchronization.
// Buffered must return ordered, disjoint ranges with increasing start times.
// The engine never owns an element's lifecycle; callers register and
// unregister it.
type MediaElement interface {
	// ID identifies the element in logs and the state snapshot.
	ID() string
	// Position is the element's current playhead, in seconds.
	Position() float64
	// SetPosition moves the element's playhead. Used for drift correction.
	SetPosition(t float64)
	// Buffered returns the element's currently buffered time ranges.
	Buffered() []TimeRange
	// Duration is the element's media duration in seconds, or 0 if unknown.
	Duration() float64
}

// EventType identifies an element notification delivered to the engine.
type EventType int

const (
	// EventStalled reports the element cannot proceed (buffer underrun).
	EventStalled EventType = iota
	// EventSeekRequested reports a seek started; Event.Time is the target.
	EventSeekRequested
	// EventBecameReady collapses the element's distinct ready signals
	// (can play, can play through, seek completed) into one notification.
	EventBecameReady
	// EventTimeProgress reports playhead movement; Event.Time is the position.
	EventTimeProgress
	// EventBufferProgress reports that the element's buffered ranges changed.
	EventBufferProgress
	// EventEnded reports end of stream.
	EventEnded
	// EventDurationKnown reports the media duration; Event.Time is the duration.
	EventDurationKnown
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStalled:
		return "stalled"
	case EventSeekRequested:
		return "seek_requested"
	case EventBecameReady:
		return "became_ready"
	case EventTimeProgress:
		return "time_progress"
	case EventBufferProgress:
		return "buffer_progress"
	case EventEnded:
		return "ended"
	case EventDurationKnown:
		return "duration_known"
	default:
		return "unknown"
	}
}

// Event is a single element notification. Time carries the seek target for
// EventSeekRequested, the reported position for EventTimeProgress, and the
// duration for EventDurationKnown; it is ignored for other types.
type Event struct {
	Type EventType
	Time float64
}
