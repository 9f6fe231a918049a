package player

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler exposes the playback session over HTTP using go-chi. Request-level
// metrics are recorded by middleware; the playback counters live in the engine.
type Handler struct {
	session *Session
	log     *slog.Logger
}

// NewHandler returns a Handler for the given Session and Logger.
func NewHandler(session *Session, log *slog.Logger) *Handler {
	return &Handler{session: session, log: log}
}

// GetState handles GET /player/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.session.Status()); err != nil {
		h.log.Error("encode state failed", slog.String("error", err.Error()))
	}
}

// Play handles POST /player/play.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	h.session.Play()
	h.log.Info("user play")
	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /player/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	h.session.Pause()
	h.log.Info("user pause")
	w.WriteHeader(http.StatusNoContent)
}

// Seek handles POST /player/seek.
// Body: { "position": 12.5 }.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Position float64 `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Debug("invalid seek body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if body.Position < 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.session.Seek(body.Position)
	h.log.Info("user seek", slog.Float64("position", body.Position))
	w.WriteHeader(http.StatusNoContent)
}
