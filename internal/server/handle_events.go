package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/tvekamp/internal/session"
)

func handleEvents(broker *session.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := sessionFrom(r)

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := broker.Subscribe(m.ID())
		defer broker.Unsubscribe(m.ID(), ch)

		// Late joiners start from the current state.
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", session.EventState, session.StateEvent(m.Snapshot()))
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-ch:
				if !ok {
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", session.EventDeleted, session.DeletedEvent(m.ID()))
					flusher.Flush()
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", session.EventState, data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
