package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/tvekamp/internal/service"
	"github.com/playperu/tvekamp/internal/store"
)

// ClearedResponse acknowledges DELETE /api/results.
type ClearedResponse struct {
	Cleared bool `json:"cleared"`
}

func handleListResults(svc *service.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := svc.ListResults(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(results))
	}
}

func handleCreateResult(svc *service.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.ResultRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := svc.CreateResult(r.Context(), req)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func handleClearResults(svc *service.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearResults(r.Context()); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ClearedResponse{Cleared: true})
	}
}

func handleScoreboard(svc *service.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sb, err := svc.Scoreboard(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, sb)
	}
}

// StorageStatser exposes the collection store's fallback counters.
type StorageStatser interface {
	Stats() store.Stats
}

func handleStorageStats(stats StorageStatser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stats.Stats())
	}
}
