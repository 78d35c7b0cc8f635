package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/tvekamp/internal/session"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc, sessions, auth := deps.Service, deps.Sessions, deps.Auth
	admin := adminMiddleware(auth)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Tvekamp API", "/openapi.json", "/docs"))

	r.Route("/api/games", func(r chi.Router) {
		r.Get("/", handleListGames(svc, logger))
		r.Post("/", handleCreateGame(svc, logger))
		r.Get("/wheel", handleWheelGames(svc, logger))
		r.Get("/{id}", handleGetGame(svc, logger))
		r.With(admin).Delete("/", handleDeleteGame(svc, logger))
		r.With(admin).Patch("/{id}/visibility", handleSetGameVisibility(svc, logger))
	})

	r.Route("/api/participants", func(r chi.Router) {
		r.Get("/", handleListParticipants(svc, logger))
		r.Post("/", handleCreateParticipant(svc, logger))
		r.With(admin).Delete("/", handleDeleteParticipant(svc, logger))
	})

	r.Route("/api/results", func(r chi.Router) {
		r.Get("/", handleListResults(svc, logger))
		r.Post("/", handleCreateResult(svc, logger))
		r.Get("/scoreboard", handleScoreboard(svc, logger))
		r.With(admin).Delete("/", handleClearResults(svc, logger))
	})

	r.Post("/api/auth", handleLogin(auth))
	r.Get("/api/auth/verify", handleVerify(auth))
	if deps.Storage != nil {
		r.Get("/api/storage", handleStorageStats(deps.Storage))
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", handleListSessions(sessions))
		r.Post("/", handleCreateSession(sessions))

		r.Route("/{sid}", func(r chi.Router) {
			r.Use(sessionMiddleware(sessions))
			r.Get("/", handleGetSession())
			r.Delete("/", handleDeleteSession(sessions, logger))
			r.Get("/wheel", handleWheel(logger))
			r.Get("/events", handleEvents(deps.Broker))

			r.Post("/spin", handleStep(logger, func(r *http.Request, m *session.Manager) (session.Snapshot, error) {
				return m.Spin(r.Context())
			}))
			r.Post("/land", handleStep(logger, step((*session.Manager).Land)))
			r.Post("/continue", handleStep(logger, step((*session.Manager).Continue)))
			r.Post("/skip", handleStep(logger, step((*session.Manager).Skip)))
			r.Post("/back", handleStep(logger, step((*session.Manager).Back)))
			r.Post("/confirm", handleStep(logger, step((*session.Manager).Confirm)))
			r.Post("/finish", handleStep(logger, step((*session.Manager).Finish)))
			r.Post("/dismiss", handleStep(logger, step((*session.Manager).Dismiss)))
			r.Post("/reset", handleStep(logger, step((*session.Manager).Reset)))
			r.Post("/animation", handleStep(logger, step((*session.Manager).ToggleAnimation)))

			r.Post("/draw", handleDraw(logger))
			r.Post("/pick", handlePick(logger, false))
			r.Post("/unpick", handlePick(logger, true))
			r.Post("/players", handleSelectPlayers(logger))
			r.Post("/winner", handleWinner(logger))

			r.Delete("/played", handleStep(logger, step((*session.Manager).ResetGames)))
			r.Delete("/played/{gameID}", handleStep(logger, func(r *http.Request, m *session.Manager) (session.Snapshot, error) {
				return m.ReturnGame(chi.URLParam(r, "gameID"))
			}))
			r.Delete("/used", handleStep(logger, step((*session.Manager).ResetPlayers)))
			r.Delete("/used/{name}", handleStep(logger, func(r *http.Request, m *session.Manager) (session.Snapshot, error) {
				return m.ReturnPlayer(chi.URLParam(r, "name"))
			}))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}

// step adapts a session method that needs nothing from the request.
func step(op func(*session.Manager) (session.Snapshot, error)) func(*http.Request, *session.Manager) (session.Snapshot, error) {
	return func(_ *http.Request, m *session.Manager) (session.Snapshot, error) {
		return op(m)
	}
}
