package sim

import (
	"testing"

	"github.com/Uschl/video-player/internal/player"
)

// recorder collects dispatched events for assertions.
type recorder struct {
	events []player.Event
}

func (r *recorder) dispatch(_ player.MediaElement, ev player.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) types() []player.EventType {
	out := make([]player.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) has(t player.EventType) bool {
	for _, ev := range r.events {
		if ev.Type == t {
			return true
		}
	}
	return false
}

func TestElement_announces_duration_once(t *testing.T) {
	rec := &recorder{}
	el := New("e", 60, 2, rec.dispatch)

	if el.Duration() != 0 {
		t.Error("duration should be unknown before the first step")
	}

	el.Step(0.1, false)
	el.Step(0.1, false)

	n := 0
	for _, ev := range rec.events {
		if ev.Type == player.EventDurationKnown {
			n++
			if ev.Time != 60 {
				t.Errorf("duration event time = %v, want 60", ev.Time)
			}
		}
	}
	if n != 1 {
		t.Errorf("duration announced %d times, want 1", n)
	}
	if el.Duration() != 60 {
		t.Errorf("Duration() = %v, want 60", el.Duration())
	}
}

func TestElement_buffers_at_bandwidth(t *testing.T) {
	rec := &recorder{}
	el := New("e", 60, 2, rec.dispatch)

	el.Step(1, false) // paused: buffer grows, playhead does not move

	ranges := el.Buffered()
	if len(ranges) != 1 {
		t.Fatalf("buffered ranges = %v, want one range", ranges)
	}
	if ranges[0].Start != 0 || ranges[0].End != 2 {
		t.Errorf("buffered = [%v, %v], want [0, 2]", ranges[0].Start, ranges[0].End)
	}
	if el.Position() != 0 {
		t.Errorf("position = %v, paused element must not advance", el.Position())
	}
	if !rec.has(player.EventBufferProgress) {
		t.Errorf("events = %v, want buffer progress", rec.types())
	}
}

func TestElement_plays_and_stalls_at_frontier(t *testing.T) {
	rec := &recorder{}
	// Bandwidth below realtime: the playhead catches up with the buffer.
	el := New("e", 60, 0.5, rec.dispatch)

	el.Step(1, false) // buffer 0.5s ahead
	for i := 0; i < 10 && !rec.has(player.EventStalled); i++ {
		el.Step(0.3, true)
	}

	if !rec.has(player.EventStalled) {
		t.Fatalf("events = %v, playhead at the frontier must stall", rec.types())
	}

	// While stalled the playhead holds still and the buffer keeps growing
	// until readyAhead is reached, then the element reports ready.
	pos := el.Position()
	for i := 0; i < 20 && !rec.has(player.EventBecameReady); i++ {
		el.Step(0.5, true)
	}
	if !rec.has(player.EventBecameReady) {
		t.Fatalf("events = %v, element must recover once buffered ahead", rec.types())
	}
	if el.Position() != pos {
		t.Errorf("position moved from %v to %v while stalled", pos, el.Position())
	}
}

func TestElement_ends_at_duration(t *testing.T) {
	rec := &recorder{}
	el := New("e", 1, 100, rec.dispatch)

	el.Step(0.1, false) // fully buffered after one step
	for i := 0; i < 20 && !rec.has(player.EventEnded); i++ {
		el.Step(0.2, true)
	}

	if !rec.has(player.EventEnded) {
		t.Fatalf("events = %v, want ended", rec.types())
	}
	if el.Position() != 1 {
		t.Errorf("position = %v, want clamped to duration 1", el.Position())
	}

	// Ended elements stay put.
	el.Step(0.2, true)
	if el.Position() != 1 {
		t.Errorf("position = %v after end, want 1", el.Position())
	}
}

func TestElement_seek_outside_buffer_rebuffers(t *testing.T) {
	rec := &recorder{}
	el := New("e", 120, 2, rec.dispatch)

	el.Step(1, false) // buffered [0, 2]
	el.SetPosition(50)

	ranges := el.Buffered()
	for _, r := range ranges {
		if r.Contains(50) {
			t.Fatalf("50 should not be buffered yet: %v", ranges)
		}
	}

	// The element re-buffers from the new position and reports ready once
	// enough is ahead.
	for i := 0; i < 10 && !rec.has(player.EventBecameReady); i++ {
		el.Step(0.5, true)
	}
	if !rec.has(player.EventBecameReady) {
		t.Fatalf("events = %v, want ready after re-buffering", rec.types())
	}

	// Ranges stay ordered and disjoint after the mid-stream seek.
	ranges = el.Buffered()
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Start <= ranges[i-1].End {
			t.Errorf("ranges not ordered/disjoint: %v", ranges)
		}
	}
}

func TestElement_backward_seek_keeps_ranges_ordered(t *testing.T) {
	rec := &recorder{}
	el := New("e", 120, 2, rec.dispatch)

	el.Step(1, false)    // [0, 2]
	el.SetPosition(50)   // new range will start at 50
	el.Step(1, false)    // [0, 2] [50, 52]
	el.SetPosition(20)   // gap between existing ranges
	el.Step(1, false)    // [0, 2] [20, 22] [50, 52]

	ranges := el.Buffered()
	if len(ranges) != 3 {
		t.Fatalf("ranges = %v, want 3", ranges)
	}
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Start <= ranges[i-1].End {
			t.Errorf("ranges not ordered/disjoint: %v", ranges)
		}
	}
	if ranges[1].Start != 20 {
		t.Errorf("middle range starts at %v, want 20", ranges[1].Start)
	}
}
