// Package feed pushes live session state to websocket clients such as a
// projector screen following the wheel.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"

	"github.com/playperu/tvekamp/internal/session"
)

type Sessions interface {
	Get(id string) (*session.Manager, error)
}

type Handler struct {
	logger   *slog.Logger
	sessions Sessions
	broker   *session.Broker
}

func NewHandler(logger *slog.Logger, sessions Sessions, broker *session.Broker) *Handler {
	return &Handler{logger: logger, sessions: sessions, broker: broker}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/sessions/{sid}", h.stream)
	return r
}

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	m, err := h.sessions.Get(sid)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; anything they send is discarded.
	ctx := conn.CloseRead(r.Context())

	ch := h.broker.Subscribe(sid)
	defer h.broker.Unsubscribe(sid, ch)

	if err := write(ctx, conn, session.StateEvent(m.Snapshot())); err != nil {
		h.logger.Debug("websocket write failed", "error", err)
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("websocket feed ended", "session", sid, "error", ctx.Err())
			return
		case data, ok := <-ch:
			if !ok {
				if err := write(ctx, conn, session.DeletedEvent(sid)); err != nil {
					h.logger.Debug("websocket write failed", "error", err)
					return
				}
				conn.Close(websocket.StatusNormalClosure, "session deleted")
				return
			}
			if err := write(ctx, conn, data); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				h.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
