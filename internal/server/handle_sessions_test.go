package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/playperu/tvekamp/internal/session"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

func (e *testEnv) seedRound(t *testing.T, playersPerTeam int) {
	t.Helper()
	expectStatus(t, e.do(t, http.MethodPost, "/api/games", map[string]any{
		"name": "Tautrekking", "rules": "Dra", "time": 2, "playersPerTeam": playersPerTeam,
	}, ""), http.StatusCreated)
	for _, p := range []map[string]any{
		{"name": "Kari", "team": "web"},
		{"name": "Ola", "team": "devops"},
	} {
		expectStatus(t, e.do(t, http.MethodPost, "/api/participants", p, ""), http.StatusCreated)
	}
}

func (e *testEnv) step(t *testing.T, sid, op string, body any, want int) session.Snapshot {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions/"+sid+"/"+op, body, "")
	expectStatus(t, rec, want)
	if want != http.StatusOK {
		return session.Snapshot{}
	}
	return decode[session.Snapshot](t, rec)
}

func TestSessionRoundOverHTTP(t *testing.T) {
	env := newTestEnv(t, Auth{})
	env.seedRound(t, 0)

	rec := env.do(t, http.MethodPost, "/api/sessions", nil, "")
	expectStatus(t, rec, http.StatusCreated)
	sid := decode[session.Snapshot](t, rec).ID

	rec = env.do(t, http.MethodGet, "/api/sessions/"+sid+"/wheel", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if w := decode[WheelResponse](t, rec); !w.CanSpin || len(w.Games) != 1 {
		t.Fatalf("wheel = %+v", w)
	}

	if s := env.step(t, sid, "spin", nil, http.StatusOK); s.Phase != session.PhaseSpinning {
		t.Fatalf("phase = %s", s.Phase)
	}
	env.step(t, sid, "land", nil, http.StatusOK)
	if s := env.step(t, sid, "continue", nil, http.StatusOK); s.Phase != session.PhaseActive || s.RemainingSeconds != 120 {
		t.Fatalf("after continue = %+v", s)
	}
	env.step(t, sid, "finish", nil, http.StatusOK)

	env.step(t, sid, "winner", TeamRequest{Team: "blue"}, http.StatusBadRequest)
	s := env.step(t, sid, "winner", TeamRequest{Team: tvekamp.TeamDevops}, http.StatusOK)
	if s.Phase != session.PhaseVictory || s.Score[tvekamp.TeamDevops] != 1 {
		t.Fatalf("after winner = %+v", s)
	}

	rec = env.do(t, http.MethodGet, "/api/results", nil, "")
	if results := decode[[]tvekamp.GameResult](t, rec); len(results) != 1 || results[0].Winner != tvekamp.TeamDevops {
		t.Errorf("results = %+v", results)
	}

	env.step(t, sid, "spin", nil, http.StatusConflict)
	env.step(t, sid, "dismiss", nil, http.StatusOK)
	env.step(t, sid, "spin", nil, http.StatusConflict)

	rec = env.do(t, http.MethodDelete, "/api/sessions/"+sid+"/played", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if s := decode[session.Snapshot](t, rec); len(s.PlayedGames) != 0 {
		t.Errorf("played = %v", s.PlayedGames)
	}
	env.step(t, sid, "spin", nil, http.StatusOK)

	expectStatus(t, env.do(t, http.MethodDelete, "/api/sessions/"+sid+"/used", nil, ""), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/sessions/"+sid, nil, ""), http.StatusOK)
	expectStatus(t, env.do(t, http.MethodGet, "/api/sessions/"+sid, nil, ""), http.StatusNotFound)
}

func TestSessionSelectionOverHTTP(t *testing.T) {
	env := newTestEnv(t, Auth{})
	env.seedRound(t, 1)

	rec := env.do(t, http.MethodPost, "/api/sessions", nil, "")
	sid := decode[session.Snapshot](t, rec).ID
	env.step(t, sid, "spin", nil, http.StatusOK)
	env.step(t, sid, "land", nil, http.StatusOK)
	env.step(t, sid, "continue", nil, http.StatusOK)

	env.step(t, sid, "players", PlayersRequest{WebPlayers: []string{"Ola"}, DevopsPlayers: []string{"Kari"}}, http.StatusBadRequest)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/draw", TeamRequest{Team: tvekamp.TeamWeb}, "")
	expectStatus(t, rec, http.StatusOK)
	if d := decode[DrawResponse](t, rec); d.Name != "Kari" {
		t.Errorf("drew %q, want the only web player", d.Name)
	}
	rec = env.do(t, http.MethodPost, "/api/sessions/"+sid+"/draw", TeamRequest{Team: tvekamp.TeamWeb}, "")
	expectStatus(t, rec, http.StatusConflict)

	env.step(t, sid, "pick", PickRequest{Team: tvekamp.TeamDevops, Name: "Kari"}, http.StatusBadRequest)
	env.step(t, sid, "pick", PickRequest{Team: tvekamp.TeamDevops, Name: "Ola"}, http.StatusOK)
	s := env.step(t, sid, "confirm", nil, http.StatusOK)
	if s.Phase != session.PhaseActive || len(s.Web.Picked) != 1 || len(s.Devops.Picked) != 1 {
		t.Fatalf("after confirm = %+v", s)
	}

	env.step(t, sid, "reset", nil, http.StatusOK)
	if s := env.step(t, sid, "animation", nil, http.StatusOK); s.Phase != session.PhaseIdle || s.Animation {
		t.Errorf("after reset and toggle = %+v", s)
	}
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, Auth{})
	expectStatus(t, env.do(t, http.MethodGet, "/api/sessions/nope", nil, ""), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodPost, "/api/sessions/nope/spin", nil, ""), http.StatusNotFound)
}

func TestSessionEvents(t *testing.T) {
	env := newTestEnv(t, Auth{})
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	m := env.sessions.Create()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/"+m.ID()+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		t.Helper()
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return ""
	}

	if first := nextData(); !strings.Contains(first, `"animation":true`) {
		t.Fatalf("initial event = %s", first)
	}

	if _, err := m.ToggleAnimation(); err != nil {
		t.Fatalf("ToggleAnimation: %v", err)
	}
	if next := nextData(); !strings.Contains(next, `"animation":false`) {
		t.Errorf("pushed event = %s", next)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/sessions/"+m.ID(), nil, ""), http.StatusOK)
	if last := nextData(); !strings.Contains(last, `"type":"deleted"`) {
		t.Errorf("event after delete = %s", last)
	}
	for lines.Scan() {
	}
	if err := lines.Err(); err != nil {
		t.Errorf("stream did not end after delete: %v", err)
	}
}

func TestTwoPerTeamRoundCreditsAura(t *testing.T) {
	env := newTestEnv(t, Auth{})

	rec := env.do(t, http.MethodPost, "/api/games", map[string]any{
		"name": "Tug of War", "rules": "Pull harder", "time": 3, "playersPerTeam": 2, "points": 2, "visible": true,
	}, "")
	expectStatus(t, rec, http.StatusCreated)
	g := decode[tvekamp.Game](t, rec)

	for _, p := range []map[string]any{
		{"name": "Kari", "team": "web"},
		{"name": "Nora", "team": "web"},
		{"name": "Ola", "team": "devops"},
		{"name": "Per", "team": "devops"},
	} {
		expectStatus(t, env.do(t, http.MethodPost, "/api/participants", p, ""), http.StatusCreated)
	}

	rec = env.do(t, http.MethodPost, "/api/sessions", nil, "")
	sid := decode[session.Snapshot](t, rec).ID

	env.step(t, sid, "spin", nil, http.StatusOK)
	if s := env.step(t, sid, "land", nil, http.StatusOK); s.CurrentGame == nil || s.CurrentGame.ID != g.ID {
		t.Fatalf("landed on %+v", s.CurrentGame)
	}
	env.step(t, sid, "continue", nil, http.StatusOK)

	env.step(t, sid, "players", PlayersRequest{WebPlayers: []string{"Kari"}, DevopsPlayers: []string{"Ola", "Per"}}, http.StatusBadRequest)
	s := env.step(t, sid, "players", PlayersRequest{WebPlayers: []string{"Kari", "Nora"}, DevopsPlayers: []string{"Ola", "Per"}}, http.StatusOK)
	if s.Phase != session.PhaseActive || s.RemainingSeconds != 180 {
		t.Fatalf("after players = %+v", s)
	}

	env.step(t, sid, "finish", nil, http.StatusOK)
	s = env.step(t, sid, "winner", TeamRequest{Team: tvekamp.TeamWeb}, http.StatusOK)
	if s.Score[tvekamp.TeamWeb] != 2 || len(s.PlayedGames) != 1 || s.PlayedGames[0] != g.ID {
		t.Errorf("after winner = %+v", s)
	}
	if s.LastResult == nil || s.LastResult.Points != 2 || s.LastResult.WebPlayers.String() != "Kari, Nora" {
		t.Errorf("last result = %+v", s.LastResult)
	}

	rec = env.do(t, http.MethodGet, "/api/participants", nil, "")
	for _, p := range decode[[]tvekamp.Participant](t, rec) {
		want := 0
		if p.Team == tvekamp.TeamWeb {
			want = 2
		}
		if p.AuraPoints != want {
			t.Errorf("%s aura = %d, want %d", p.Name, p.AuraPoints, want)
		}
	}
}
