package feed_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/tvekamp/internal/handler/feed"
	"github.com/playperu/tvekamp/internal/service"
	"github.com/playperu/tvekamp/internal/session"
	"github.com/playperu/tvekamp/internal/tvekamp"
)

type emptyCatalog struct{}

func (emptyCatalog) VisibleGames(context.Context) ([]tvekamp.Game, error) { return nil, nil }

func (emptyCatalog) ListParticipants(context.Context) ([]tvekamp.Participant, error) {
	return nil, nil
}

func (emptyCatalog) CreateResult(context.Context, service.ResultRequest) (tvekamp.GameResult, error) {
	return tvekamp.GameResult{}, nil
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) session.Event {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev session.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decoding %s: %v", data, err)
	}
	return ev
}

func TestStream(t *testing.T) {
	broker := session.NewBroker()
	sessions := session.NewRegistry(emptyCatalog{}, slog.Default(),
		session.WithNotify(broker.Publish),
		session.WithOnClose(broker.Close),
	)
	defer sessions.Close()
	m := sessions.Create()

	srv := httptest.NewServer(feed.NewHandler(slog.Default(), sessions, broker).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/sessions/" + m.ID()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	first := readEvent(t, ctx, conn)
	if first.Type != session.EventState || first.Snapshot == nil || first.Snapshot.ID != m.ID() || !first.Snapshot.Animation {
		t.Fatalf("initial event = %+v", first)
	}

	if _, err := m.ToggleAnimation(); err != nil {
		t.Fatalf("ToggleAnimation: %v", err)
	}
	next := readEvent(t, ctx, conn)
	if next.Snapshot == nil || next.Snapshot.Animation || next.Snapshot.Version <= first.Snapshot.Version {
		t.Errorf("pushed event = %+v", next.Snapshot)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestStreamEndsWhenSessionDeleted(t *testing.T) {
	broker := session.NewBroker()
	sessions := session.NewRegistry(emptyCatalog{}, slog.Default(),
		session.WithNotify(broker.Publish),
		session.WithOnClose(broker.Close),
	)
	defer sessions.Close()
	m := sessions.Create()

	srv := httptest.NewServer(feed.NewHandler(slog.Default(), sessions, broker).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/sessions/" + m.ID()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	readEvent(t, ctx, conn)
	if err := sessions.Delete(m.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ev := readEvent(t, ctx, conn)
	if ev.Type != session.EventDeleted || ev.Session != m.ID() || ev.Snapshot != nil {
		t.Errorf("event after delete = %+v", ev)
	}
	if _, _, err := conn.Read(ctx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("read after delete: %v, want normal closure", err)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	sessions := session.NewRegistry(emptyCatalog{}, slog.Default())
	h := feed.NewHandler(slog.Default(), sessions, session.NewBroker())

	req := httptest.NewRequest(http.MethodGet, "/sessions/nope", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
