package player

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T) (*Handler, *Session) {
	t.Helper()
	store := NewMemoryState()
	engine := NewEngine(store, testLogger(), WithSyncInterval(time.Hour))
	t.Cleanup(engine.Close)
	session := NewSession(store, engine)
	return NewHandler(session, testLogger()), session
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/player", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/play", h.Play)
		r.Post("/pause", h.Pause)
		r.Post("/seek", h.Seek)
	})
	return r
}

func TestHandler_GetState(t *testing.T) {
	h, session := newTestHandler(t)
	r := newTestRouter(h)

	session.Attach(&fakeElement{id: "primary"})
	session.Play()

	req := httptest.NewRequest(http.MethodGet, "/player/state", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if got.PlayState != "playing" {
		t.Errorf("play_state = %q, want playing", got.PlayState)
	}
	if got.Master != "primary" {
		t.Errorf("master = %q, want primary", got.Master)
	}
}

func TestHandler_Play_Pause(t *testing.T) {
	h, session := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/player/play", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("play: expected 204, got %d", rec.Code)
	}
	if got := session.Status().PlayState; got != "playing" {
		t.Errorf("play_state = %q, want playing", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/player/pause", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("pause: expected 204, got %d", rec.Code)
	}
	if got := session.Status().PlayState; got != "paused" {
		t.Errorf("play_state = %q, want paused", got)
	}
}

func TestHandler_Seek(t *testing.T) {
	h, session := newTestHandler(t)
	r := newTestRouter(h)

	el := &fakeElement{id: "primary", buffered: []TimeRange{{Start: 0, End: 60}}}
	session.Attach(el)

	b, _ := json.Marshal(map[string]interface{}{"position": 12.5})
	req := httptest.NewRequest(http.MethodPost, "/player/seek", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if el.pos != 12.5 {
		t.Errorf("element position = %v, want 12.5", el.pos)
	}
	if got := session.Status().Position; got != 12.5 {
		t.Errorf("position = %v, want 12.5", got)
	}
}

func TestHandler_Seek_bad_request(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	t.Run("not_json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/player/seek", bytes.NewReader([]byte("not json")))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("negative_position", func(t *testing.T) {
		b, _ := json.Marshal(map[string]interface{}{"position": -1})
		req := httptest.NewRequest(http.MethodPost, "/player/seek", bytes.NewReader(b))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandler_method_not_allowed(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/player/play", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
