// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type testFrame struct {
	Seq     uint64    `json:"seq"`
	Heights []float32 `json:"heights"`
}

func startWebSocket(t *testing.T, onCommand CommandHandler) (*WebSocketTransport, *websocket.Conn) {
	t.Helper()
	wst := NewWebSocketTransport("127.0.0.1:0", onCommand)
	if err := wst.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { wst.Close() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return wst, conn
}

func TestWebSocketBroadcastsJSON(t *testing.T) {
	wst, conn := startWebSocket(t, nil)

	if err := wst.Send(testFrame{Seq: 7, Heights: []float32{1, 2.5}}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got testFrame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Seq != 7 || len(got.Heights) != 2 || got.Heights[1] != 2.5 {
		t.Errorf("received %+v", got)
	}
}

func TestWebSocketReceivesCommands(t *testing.T) {
	cmds := make(chan Command, 4)
	_, conn := startWebSocket(t, func(c Command) { cmds <- c })

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(Command{Action: "tap", Note: 60}); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-cmds:
		if c.Action != "tap" || c.Note != 60 {
			t.Errorf("command = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command not delivered after a malformed message")
	}
}

func TestWebSocketDropsDisconnectedClients(t *testing.T) {
	wst, conn := startWebSocket(t, nil)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d after disconnect", wst.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketSendNeverBlocks(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", nil)
	defer wst.Close()
	// Not started: nothing drains the queue.
	for i := range broadcastQueue * 2 {
		if err := wst.Send(i); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport(10)
	for range 25 {
		if err := lt.Send("frame"); err != nil {
			t.Fatal(err)
		}
	}
	if lt.Sent() != 25 {
		t.Errorf("Sent() = %d, want 25", lt.Sent())
	}
	if err := lt.Close(); err != nil {
		t.Error(err)
	}
}
