package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/tvekamp/internal/service"
	"github.com/playperu/tvekamp/internal/session"
	"github.com/playperu/tvekamp/internal/store"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

type testEnv struct {
	handler  http.Handler
	sessions *session.Registry
}

func newTestEnv(t *testing.T, auth Auth) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	local, err := store.NewFileBackend(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	tiered := store.NewTiered(logger, nil, local)
	svc := service.New(tiered, logger, service.Options{DefaultVisible: true})

	broker := session.NewBroker()
	sessions := session.NewRegistry(svc, logger,
		session.WithNotify(broker.Publish),
		session.WithOnClose(broker.Close),
	)
	t.Cleanup(sessions.Close)

	return &testEnv{
		handler: NewHandler(logger, Deps{
			Service:  svc,
			Sessions: sessions,
			Broker:   broker,
			Storage:  tiered,
			Auth:     auth,
		}, nil),
		sessions: sessions,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d: %s", rec.Code, want, rec.Body.String())
	}
}

func TestGamesAPI(t *testing.T) {
	env := newTestEnv(t, Auth{})

	rec := env.do(t, http.MethodPost, "/api/games", map[string]any{"name": "Stafett", "rules": "Løp"}, "")
	expectStatus(t, rec, http.StatusCreated)
	g := decode[tvekamp.Game](t, rec)
	if g.ID == "" || g.Time != 5 || g.PlayersPerTeam != 1 || g.Points != 1 || !g.Visible {
		t.Errorf("created game = %+v", g)
	}

	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID, nil, "")
	expectStatus(t, rec, http.StatusOK)
	if got := decode[tvekamp.Game](t, rec); got.Name != "Stafett" {
		t.Errorf("got %+v", got)
	}

	rec = env.do(t, http.MethodPatch, "/api/games/"+g.ID+"/visibility", map[string]any{"visible": false}, "")
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodGet, "/api/games/wheel", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if wheel := decode[[]tvekamp.Game](t, rec); len(wheel) != 0 {
		t.Errorf("hidden game on the wheel: %+v", wheel)
	}

	rec = env.do(t, http.MethodDelete, "/api/games?id="+g.ID, nil, "")
	expectStatus(t, rec, http.StatusOK)
	rec = env.do(t, http.MethodDelete, "/api/games?id="+g.ID, nil, "")
	expectStatus(t, rec, http.StatusNotFound)
	rec = env.do(t, http.MethodDelete, "/api/games", nil, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodGet, "/api/games/"+g.ID, nil, "")
	expectStatus(t, rec, http.StatusNotFound)
}

func TestGamesAPIValidation(t *testing.T) {
	env := newTestEnv(t, Auth{})

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{"missing name", map[string]any{"rules": "x"}, "name"},
		{"missing rules", map[string]any{"name": "x"}, "rules"},
		{"negative time", map[string]any{"name": "x", "rules": "y", "time": -2}, "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/games", tt.body, "")
			expectStatus(t, rec, http.StatusBadRequest)
			if got := decode[ErrorResponse](t, rec); got.Field != tt.wantField {
				t.Errorf("field = %q, want %q", got.Field, tt.wantField)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/games", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodGet, "/api/games", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("games after failed creates = %q, want []", body)
	}
}

func TestResultsAPICreditsAura(t *testing.T) {
	env := newTestEnv(t, Auth{})

	for _, p := range []map[string]any{
		{"name": "Kari", "team": "web"},
		{"name": "Ola", "team": "devops"},
	} {
		expectStatus(t, env.do(t, http.MethodPost, "/api/participants", p, ""), http.StatusCreated)
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/participants", map[string]any{"name": "Per", "team": "ops"}, ""), http.StatusBadRequest)

	// devopsPlayers in the legacy comma-joined form.
	rec := env.do(t, http.MethodPost, "/api/results", map[string]any{
		"gameId":        "g1",
		"gameName":      "Stafett",
		"winner":        "web",
		"webPlayers":    []string{"Kari"},
		"devopsPlayers": "Ola",
		"points":        3,
	}, "")
	expectStatus(t, rec, http.StatusCreated)
	res := decode[tvekamp.GameResult](t, rec)
	if res.Points != 3 || len(res.DevopsPlayers) != 1 || res.DevopsPlayers[0] != "Ola" {
		t.Errorf("result = %+v", res)
	}

	rec = env.do(t, http.MethodGet, "/api/participants", nil, "")
	expectStatus(t, rec, http.StatusOK)
	for _, p := range decode[[]tvekamp.Participant](t, rec) {
		want := 0
		if p.Name == "Kari" {
			want = 3
		}
		if p.AuraPoints != want {
			t.Errorf("%s aura = %d, want %d", p.Name, p.AuraPoints, want)
		}
	}

	rec = env.do(t, http.MethodGet, "/api/results/scoreboard", nil, "")
	expectStatus(t, rec, http.StatusOK)
	sb := decode[tvekamp.Scoreboard](t, rec)
	if sb.Web.Wins != 1 || sb.Web.AuraPoints != 3 || sb.Devops.Wins != 0 || sb.Played != 1 {
		t.Errorf("scoreboard = %+v", sb)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/api/results", nil, ""), http.StatusOK)
	rec = env.do(t, http.MethodGet, "/api/results", nil, "")
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("results after clear = %q", body)
	}
}

func TestAdminAuth(t *testing.T) {
	auth, err := NewAuth("sesam", "hemmelig")
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	env := newTestEnv(t, auth)

	expectStatus(t, env.do(t, http.MethodDelete, "/api/results", nil, ""), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/results", nil, "wrong"), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/participants?id=x", nil, ""), http.StatusUnauthorized)
	// Reads and creates stay open.
	expectStatus(t, env.do(t, http.MethodGet, "/api/results", nil, ""), http.StatusOK)

	expectStatus(t, env.do(t, http.MethodPost, "/api/auth", LoginRequest{Password: "feil"}, ""), http.StatusUnauthorized)
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth", LoginRequest{}, ""), http.StatusBadRequest)

	rec := env.do(t, http.MethodPost, "/api/auth", LoginRequest{Password: "hemmelig"}, "")
	expectStatus(t, rec, http.StatusOK)
	token := decode[LoginResponse](t, rec).Token
	if token != "sesam" {
		t.Fatalf("token = %q", token)
	}

	rec = env.do(t, http.MethodGet, "/api/auth/verify", nil, token)
	expectStatus(t, rec, http.StatusOK)
	if v := decode[VerifyResponse](t, rec); !v.Valid || !v.Required {
		t.Errorf("verify = %+v", v)
	}
	expectStatus(t, env.do(t, http.MethodGet, "/api/auth/verify", nil, ""), http.StatusUnauthorized)

	expectStatus(t, env.do(t, http.MethodDelete, "/api/results", nil, token), http.StatusOK)
}

func TestAuthDisabled(t *testing.T) {
	env := newTestEnv(t, Auth{})

	rec := env.do(t, http.MethodGet, "/api/auth/verify", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if v := decode[VerifyResponse](t, rec); !v.Valid || v.Required {
		t.Errorf("verify = %+v", v)
	}
	expectStatus(t, env.do(t, http.MethodPost, "/api/auth", LoginRequest{Password: "x"}, ""), http.StatusUnauthorized)
}

func TestStorageStats(t *testing.T) {
	env := newTestEnv(t, Auth{})

	rec := env.do(t, http.MethodGet, "/api/storage", nil, "")
	expectStatus(t, rec, http.StatusOK)
	stats := decode[store.Stats](t, rec)
	if stats.Local != "file" || stats.Primary != "" || stats.Fallbacks != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
