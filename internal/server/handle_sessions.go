package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/tvekamp/internal/session"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

// TeamRequest is the request body for draw and winner.
type TeamRequest struct {
	Team tvekamp.Team `json:"team"`
}

// PickRequest is the request body for pick and unpick.
type PickRequest struct {
	Team tvekamp.Team `json:"team"`
	Name string       `json:"name"`
}

// PlayersRequest is the request body for POST /api/sessions/{sid}/players.
type PlayersRequest struct {
	WebPlayers    []string `json:"webPlayers"`
	DevopsPlayers []string `json:"devopsPlayers"`
}

// DrawResponse names the drawn player alongside the new state.
type DrawResponse struct {
	Name    string           `json:"name"`
	Session session.Snapshot `json:"session"`
}

// WheelResponse lists the games the next spin can land on.
type WheelResponse struct {
	Games   []tvekamp.Game `json:"games"`
	CanSpin bool           `json:"canSpin"`
}

func handleCreateSession(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := sessions.Create()
		writeJSON(w, http.StatusCreated, m.Snapshot())
	}
}

func handleListSessions(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessions.List())
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
	}
}

func handleDeleteSession(sessions *session.Registry, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sid")
		if err := sessions.Delete(sid); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, DeletedResponse{Deleted: sid})
	}
}

func handleWheel(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := sessionFrom(r)
		games, err := m.Wheel(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		canSpin := len(games) > 0 && m.Snapshot().Phase == session.PhaseIdle
		writeJSON(w, http.StatusOK, WheelResponse{Games: nonNil(games), CanSpin: canSpin})
	}
}

// handleStep runs a body-less session operation and returns the new state.
func handleStep(logger *slog.Logger, step func(*http.Request, *session.Manager) (session.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := step(r, sessionFrom(r))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleDraw(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		name, snap, err := sessionFrom(r).Draw(req.Team)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, DrawResponse{Name: name, Session: snap})
	}
}

func handlePick(logger *slog.Logger, unpick bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PickRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		m := sessionFrom(r)
		op := m.Pick
		if unpick {
			op = m.Unpick
		}
		snap, err := op(req.Team, req.Name)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleSelectPlayers(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayersRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		snap, err := sessionFrom(r).SelectPlayers(req.WebPlayers, req.DevopsPlayers)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleWinner(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		snap, err := sessionFrom(r).DeclareWinner(r.Context(), req.Team)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
