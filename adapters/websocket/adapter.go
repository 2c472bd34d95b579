package websocket

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"pushstreak/core"
	"pushstreak/realtime"
)

// EventSnapshot is the frame type sent once on connect with the current record.
const EventSnapshot core.EventType = "snapshot"

const writeWait = 5 * time.Second

// StateFunc returns the current progress record.
type StateFunc func(ctx context.Context) (core.ProgressState, error)

// Handler returns an http.Handler that upgrades to WebSocket and streams
// events from the hub. When snapshot is non-nil the current record is sent first.
func Handler(hub *realtime.Hub, snapshot StateFunc) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(64)
		defer hub.Unsubscribe(id)

		if snapshot != nil {
			if st, err := snapshot(r.Context()); err == nil {
				ev := core.Event{Type: EventSnapshot, Time: time.Now().UTC(), State: st}
				if err := write(conn, ev); err != nil {
					return
				}
			}
		}

		// detect client close; reads are otherwise ignored
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := write(conn, ev); err != nil {
					return
				}
			}
		}
	})
}

func write(conn *gorillaws.Conn, ev core.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev))
}
