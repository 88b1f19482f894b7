package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stemsync/stemsync/internal/engine"
	"github.com/stemsync/stemsync/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.coord.Load(req.Paths)
	var pde *engine.PartialDecodeError
	switch {
	case errors.Is(err, engine.ErrNoPlayableSource):
		writeError(w, http.StatusUnprocessableEntity, "no playable source")
	case errors.As(err, &pde):
		writeError(w, http.StatusUnprocessableEntity, pde.Error())
	case err != nil:
		logger.Error("load failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "load failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":               true,
			"tracks":           s.coord.Tracks(),
			"duration_seconds": s.coord.Duration(),
		})
	}
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	err := s.coord.Play()
	switch {
	case errors.Is(err, engine.ErrNoPlayableSource):
		writeError(w, http.StatusUnprocessableEntity, "no timeline loaded")
	case errors.Is(err, engine.ErrSessionActivation):
		writeError(w, http.StatusServiceUnavailable, "audio output unavailable")
	case err != nil:
		logger.Error("play failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "play failed")
	default:
		// Playback may still be inside the clock acquisition window;
		// is_playing flips once the start batch lands and the event
		// feed announces it.
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         true,
			"state":      s.coord.State(),
			"is_playing": s.coord.IsPlaying(),
		})
	}
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.coord.Pause()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"state": s.coord.State(),
	})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds *float64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds == nil {
		writeError(w, http.StatusBadRequest, "seconds required")
		return
	}
	if *req.Seconds < 0 {
		writeError(w, http.StatusBadRequest, "seconds must be non-negative")
		return
	}

	s.coord.Seek(*req.Seconds)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"position_seconds": s.coord.Position(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, map[string]any{
		"state":             s.coord.State(),
		"is_playing":        s.coord.IsPlaying(),
		"position_seconds":  s.coord.Position(),
		"duration_seconds":  s.coord.Duration(),
		"tracks":            s.coord.Tracks(),
		"now_playing":       s.np.Current(),
		"mp3_listeners":     s.broadcaster.ListenerCount(),
		"webrtc_listeners":  s.webrtcOut.PeerCount(),
		"event_subscribers": s.hub.SubscriberCount(),
	})
}
