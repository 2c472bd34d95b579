package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"pushstreak/core"
	"pushstreak/realtime"
)

func TestHandlerStreamsSnapshotThenEvents(t *testing.T) {
	hub := realtime.NewHub()
	current := core.ProgressState{LastPushDate: "2025-01-29", Streak: 2, Level: 1, Experience: 20}
	server := httptest.NewServer(Handler(hub, func(context.Context) (core.ProgressState, error) {
		return current, nil
	}))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] // convert http->ws
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first core.Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != EventSnapshot || first.State != current {
		t.Fatalf("unexpected snapshot: %+v", first)
	}

	// the snapshot is written after Subscribe, so the hub already has us
	next := core.ProgressState{LastPushDate: "2025-01-30", Streak: 3, Level: 2, Experience: 0}
	hub.Broadcast(context.Background(), core.NewLevelUp(next))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var received core.Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if received.Type != core.EventLevelUp || received.State.Level != 2 {
		t.Fatalf("unexpected event: %+v", received)
	}
}
