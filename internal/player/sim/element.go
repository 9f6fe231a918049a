// Package sim provides a clock-driven media element for running the
// synchronization engine without a real media backend. An element downloads
// buffer at a configurable bandwidth, advances its playhead while the group
// plays, stalls when the playhead reaches the buffer frontier, and reports
// ready again once enough buffer accumulates ahead.
package sim

import (
	"sync"

	"github.com/Uschl/video-player/internal/player"
)

// readyAhead is the buffered seconds ahead of the playhead required before a
// stalled element reports ready again.
const readyAhead = 1.0

// Dispatch delivers an element event to the engine.
type Dispatch func(el player.MediaElement, ev player.Event)

// Element is a simulated media element. Step drives its clock; all emitted
// events go through the Dispatch function it was constructed with.
type Element struct {
	id        string
	duration  float64
	bandwidth float64
	dispatch  Dispatch

	mu        sync.Mutex
	pos       float64
	buffered  []player.TimeRange
	stalled   bool
	announced bool
	ended     bool
}

// New returns an element with the given media duration in seconds and
// download bandwidth in buffered seconds per wall second.
func New(id string, duration, bandwidth float64, dispatch Dispatch) *Element {
	return &Element{
		id:        id,
		duration:  duration,
		bandwidth: bandwidth,
		dispatch:  dispatch,
	}
}

// ID implements player.MediaElement.
func (e *Element) ID() string { return e.id }

// Position implements player.MediaElement.
func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

// SetPosition implements player.MediaElement. Moving the playhead outside
// the buffered ranges puts the element back into its stall cycle, the same
// way a real element re-buffers after a cold seek.
func (e *Element) SetPosition(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t > e.duration {
		t = e.duration
	}
	e.pos = t
	e.ended = false
	if e.frontierLocked() <= t {
		e.stalled = true
	}
}

// Buffered implements player.MediaElement.
func (e *Element) Buffered() []player.TimeRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]player.TimeRange, len(e.buffered))
	copy(out, e.buffered)
	return out
}

// Duration implements player.MediaElement.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.announced {
		return 0
	}
	return e.duration
}

// Step advances the element's clock by dt wall seconds. playing reports
// whether the group intends to play. Events are dispatched after the
// element's own state settles, outside its lock.
func (e *Element) Step(dt float64, playing bool) {
	e.mu.Lock()

	var events []player.Event

	if !e.announced {
		e.announced = true
		events = append(events, player.Event{Type: player.EventDurationKnown, Time: e.duration})
	}

	if grown := e.downloadLocked(dt); grown {
		events = append(events, player.Event{Type: player.EventBufferProgress})
	}

	frontier := e.frontierLocked()

	if e.stalled {
		if frontier-e.pos >= readyAhead || frontier >= e.duration {
			e.stalled = false
			events = append(events, player.Event{Type: player.EventBecameReady})
		}
	} else if playing && !e.ended {
		next := e.pos + dt
		switch {
		case next >= e.duration:
			e.pos = e.duration
			e.ended = true
			events = append(events,
				player.Event{Type: player.EventTimeProgress, Time: e.pos},
				player.Event{Type: player.EventEnded})
		case next >= frontier:
			e.pos = frontier
			e.stalled = true
			events = append(events,
				player.Event{Type: player.EventTimeProgress, Time: e.pos},
				player.Event{Type: player.EventStalled})
		default:
			e.pos = next
			events = append(events, player.Event{Type: player.EventTimeProgress, Time: e.pos})
		}
	}

	e.mu.Unlock()

	for _, ev := range events {
		e.dispatch(e, ev)
	}
}

// downloadLocked grows the buffered range at the playhead by bandwidth*dt,
// creating one if the playhead sits outside every range. Returns whether any
// buffer was gained. Caller must hold e.mu.
func (e *Element) downloadLocked(dt float64) bool {
	if e.duration <= 0 || dt <= 0 {
		return false
	}

	idx := -1
	for i := len(e.buffered) - 1; i >= 0; i-- {
		if e.buffered[i].Start <= e.pos {
			idx = i
			break
		}
	}
	if idx == -1 || e.buffered[idx].End < e.pos {
		// Start a new range at the playhead, keeping ranges time-ordered.
		ins := idx + 1
		e.buffered = append(e.buffered, player.TimeRange{})
		copy(e.buffered[ins+1:], e.buffered[ins:])
		e.buffered[ins] = player.TimeRange{Start: e.pos, End: e.pos}
		idx = ins
	}

	r := &e.buffered[idx]
	if r.End >= e.duration {
		return false
	}
	r.End += e.bandwidth * dt
	if r.End > e.duration {
		r.End = e.duration
	}

	// Merge with the next range if the download caught up to it.
	if idx+1 < len(e.buffered) && r.End >= e.buffered[idx+1].Start {
		r.End = e.buffered[idx+1].End
		e.buffered = append(e.buffered[:idx+1], e.buffered[idx+2:]...)
	}
	return true
}

// frontierLocked returns the end of the buffered range containing the
// playhead, or the playhead itself if nothing is buffered there. Caller must
// hold e.mu.
func (e *Element) frontierLocked() float64 {
	for i := len(e.buffered) - 1; i >= 0; i-- {
		if e.buffered[i].Start <= e.pos && e.buffered[i].End >= e.pos {
			return e.buffered[i].End
		}
	}
	return e.pos
}
