package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/tvekamp/internal/handler/health"
	"github.com/playperu/tvekamp/internal/service"
	"github.com/playperu/tvekamp/internal/session"
	"github.com/playperu/tvekamp/internal/store"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

type operation struct {
	method, path string
	summary      string
	description  string
	req          any
	resp         any
	status       int
	errors       []int
	contentType  string
}

var sessionSteps = []struct{ path, summary, description string }{
	{"spin", "Spin the wheel", "Draws a random unplayed visible game and snapshots the participants."},
	{"land", "Land the wheel", "Stops on the drawn game and reveals it."},
	{"continue", "Continue from reveal", "Starts player selection, or the match directly when everyone plays."},
	{"skip", "Skip game", "Discards the revealed game without marking it played."},
	{"back", "Back to reveal", "Leaves player selection and drops staged picks."},
	{"confirm", "Confirm players", "Starts the match once both teams are full."},
	{"finish", "Finish match", "Ends the countdown early."},
	{"dismiss", "Dismiss victory", "Returns to idle after the celebration."},
	{"reset", "Reset round", "Abandons the round in progress."},
	{"animation", "Toggle animation", "Flips the wheel animation preference."},
}

func operations() []operation {
	ops := []operation{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			description: "Reports on each storage tier. A failing primary only degrades the service.",
			resp:        health.Response{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},

		{method: http.MethodGet, path: "/api/games", summary: "List games",
			resp: []tvekamp.Game{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/games/wheel", summary: "List wheel games",
			description: "Returns visible games only.",
			resp:        []tvekamp.Game{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/games/{id}", summary: "Get game",
			resp: tvekamp.Game{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/games", summary: "Create game",
			description: "Defaults: time 5, playersPerTeam 1, points 1. playersPerTeam 0 means the whole team plays.",
			req:         service.GameRequest{}, resp: tvekamp.Game{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest}},
		{method: http.MethodPatch, path: "/api/games/{id}/visibility", summary: "Set game visibility",
			description: "Requires the admin bearer token when one is configured.",
			req:         VisibilityRequest{}, resp: tvekamp.Game{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}},
		{method: http.MethodDelete, path: "/api/games", summary: "Delete game",
			description: "Takes the id as a query parameter. Requires the admin bearer token when one is configured.",
			resp:        DeletedResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}},

		{method: http.MethodGet, path: "/api/participants", summary: "List participants",
			resp: []tvekamp.Participant{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/participants", summary: "Create participant",
			req: service.ParticipantRequest{}, resp: tvekamp.Participant{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest}},
		{method: http.MethodDelete, path: "/api/participants", summary: "Delete participant",
			description: "Takes the id as a query parameter.",
			resp:        DeletedResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound}},

		{method: http.MethodGet, path: "/api/results", summary: "List results",
			resp: []tvekamp.GameResult{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/results", summary: "Record result",
			description: "Credits aura points to every winning participant named on the winning roster.",
			req:         service.ResultRequest{}, resp: tvekamp.GameResult{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest}},
		{method: http.MethodDelete, path: "/api/results", summary: "Clear results",
			resp: ClearedResponse{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/results/scoreboard", summary: "Scoreboard",
			description: "Wins, points and aura totals per team.",
			resp:        tvekamp.Scoreboard{}, status: http.StatusOK},

		{method: http.MethodPost, path: "/api/auth", summary: "Admin login",
			description: "Exchanges the admin password for the shared bearer token.",
			req:         LoginRequest{}, resp: LoginResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/auth/verify", summary: "Verify token",
			resp: VerifyResponse{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/storage", summary: "Storage stats",
			description: "Which tiers are configured and how often the primary was bypassed.",
			resp:        store.Stats{}, status: http.StatusOK},

		{method: http.MethodGet, path: "/api/sessions", summary: "List sessions",
			resp: []session.Snapshot{}, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/sessions", summary: "Create session",
			resp: session.Snapshot{}, status: http.StatusCreated},
		{method: http.MethodGet, path: "/api/sessions/{sid}", summary: "Get session",
			resp: session.Snapshot{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
		{method: http.MethodDelete, path: "/api/sessions/{sid}", summary: "Delete session",
			resp: DeletedResponse{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/sessions/{sid}/wheel", summary: "Session wheel",
			description: "Visible games not yet played in this session.",
			resp:        WheelResponse{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/sessions/{sid}/events", summary: "Session event stream",
			description: "Server-Sent Events; every change pushes the full session state.",
			status:      http.StatusOK, contentType: "text/event-stream", errors: []int{http.StatusNotFound}},
		{method: http.MethodGet, path: "/ws/sessions/{sid}", summary: "Session websocket feed",
			description: "Upgrades to a WebSocket that pushes the full session state on every change.",
			status:      http.StatusSwitchingProtocols, contentType: "text/plain", errors: []int{http.StatusNotFound}},

		{method: http.MethodPost, path: "/api/sessions/{sid}/draw", summary: "Draw player",
			description: "Picks a random available player for the team.",
			req:         TeamRequest{}, resp: DrawResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/sessions/{sid}/pick", summary: "Pick player",
			req: PickRequest{}, resp: session.Snapshot{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/sessions/{sid}/unpick", summary: "Unpick player",
			req: PickRequest{}, resp: session.Snapshot{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/sessions/{sid}/players", summary: "Select players",
			description: "Replaces both teams at once and starts the match. Nothing changes on error.",
			req:         PlayersRequest{}, resp: session.Snapshot{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodPost, path: "/api/sessions/{sid}/winner", summary: "Declare winner",
			description: "Records the result. On a storage failure the session returns to idle.",
			req:         TeamRequest{}, resp: session.Snapshot{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError}},

		{method: http.MethodDelete, path: "/api/sessions/{sid}/played", summary: "Return all games",
			resp: session.Snapshot{}, status: http.StatusOK, errors: []int{http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodDelete, path: "/api/sessions/{sid}/played/{gameID}", summary: "Return game",
			resp: session.Snapshot{}, status: http.StatusOK, errors: []int{http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodDelete, path: "/api/sessions/{sid}/used", summary: "Return all players",
			resp: session.Snapshot{}, status: http.StatusOK, errors: []int{http.StatusNotFound, http.StatusConflict}},
		{method: http.MethodDelete, path: "/api/sessions/{sid}/used/{name}", summary: "Return player",
			resp: session.Snapshot{}, status: http.StatusOK, errors: []int{http.StatusNotFound, http.StatusConflict}},
	}

	for _, s := range sessionSteps {
		ops = append(ops, operation{
			method: http.MethodPost, path: "/api/sessions/{sid}/" + s.path,
			summary: s.summary, description: s.description,
			resp: session.Snapshot{}, status: http.StatusOK,
			errors: []int{http.StatusNotFound, http.StatusConflict},
		})
	}
	return ops
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Tvekamp API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Games, participants, results and live wheel sessions for the web vs devops event.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		if op.contentType != "" {
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(op.status), openapi.WithContentType(op.contentType))
		} else {
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		}
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
