package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livecompositor/core/internal/eventbus"
)

// upgrader allows any origin: the control plane sits behind the same
// reverse proxy as the rest of Roost's media services and doesn't serve
// browser clients directly.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS upgrades to a websocket and streams newline-delimited JSON
// lifecycle events (spec §6 "Event stream") until the client disconnects.
// Each connection gets its own EventBus subscription and a small buffered
// channel so a slow reader never blocks the scheduler loop that published
// the event (eventbus.Bus calls subscribers synchronously on the
// publishing goroutine).
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := make(chan eventbus.Event, 64)
	unsubscribe := s.pipeline.Bus.Subscribe(func(ev eventbus.Event) {
		select {
		case events <- ev:
		default:
			// Reader too far behind: drop rather than block the scheduler.
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case ev := <-events:
			line, err := json.Marshal(toWSEvent(ev))
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
