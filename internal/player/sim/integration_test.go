package sim

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/Uschl/video-player/internal/player"
)

// TestTwoStreamsStayInSync runs the full stack deterministically: two
// simulated elements with different bandwidths attached to one engine, the
// slower one stalling and recovering, with drift ticks interleaved the way
// the daemon does it.
func TestTwoStreamsStayInSync(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := player.NewMemoryState()
	engine := player.NewEngine(store, log, player.WithSyncInterval(time.Hour))
	defer engine.Close()
	session := player.NewSession(store, engine)

	// The fallback downloads slower than realtime, so it periodically stalls
	// the group; the primary never does.
	primary := New("primary", 30, 3, engine.Dispatch)
	fallback := New("fallback", 30, 0.8, engine.Dispatch)
	session.Attach(primary)
	session.Attach(fallback)

	session.Play()

	sawWaiting := false
	for i := 0; i < 600; i++ {
		playing := store.Snapshot().PlayState == player.StatePlaying
		primary.Step(0.1, playing)
		fallback.Step(0.1, playing)
		if store.Snapshot().PlayState == player.StateWaiting {
			sawWaiting = true
		}
		if store.Snapshot().PlayState == player.StateFinished {
			break
		}
	}

	snap := store.Snapshot()
	if snap.PlayState != player.StateFinished {
		t.Fatalf("play state = %v after run, want finished", snap.PlayState)
	}
	if !sawWaiting {
		t.Error("the slower stream should have stalled the group at least once")
	}
	if snap.Duration != 30 {
		t.Errorf("duration = %v, want 30", snap.Duration)
	}
	if snap.Position != 30 {
		t.Errorf("position = %v, want 30 at end of stream", snap.Position)
	}
	if d := math.Abs(primary.Position() - fallback.Position()); d > 1 {
		t.Errorf("streams drifted apart by %v seconds at end of run", d)
	}
}
