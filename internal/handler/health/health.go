// Package health reports on the storage tiers behind the service.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker verifies that a storage tier is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// Check is one named dependency. A failing optional check degrades the
// service but keeps it up, since reads and writes fall back to the local tier.
type Check struct {
	Name     string
	Checker  Checker
	Optional bool
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusError    = "error"
)

type Handler struct {
	checks []Check
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks ...Check) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type Result struct {
	Status string `json:"status"`
}

type Response struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := Response{Status: statusOK, Checks: make(map[string]Result, len(h.checks))}
	status := http.StatusOK

	for _, c := range h.checks {
		if err := c.Checker.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", c.Name, "optional", c.Optional, "error", err)
			resp.Checks[c.Name] = Result{Status: statusError}
			if c.Optional {
				if resp.Status == statusOK {
					resp.Status = statusDegraded
				}
				continue
			}
			resp.Status = statusError
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = Result{Status: statusOK}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
