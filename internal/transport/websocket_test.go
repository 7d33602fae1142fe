// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"specviz/internal/spectro"
)

func dialTest(t *testing.T, ws *WebSocketServer) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ws.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, ws *WebSocketServer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ws.Clients() == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client count never reached %d (have %d)", n, ws.Clients())
}

func TestWebSocketBroadcastsFrames(t *testing.T) {
	ws, err := NewWebSocketServer("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	conn := dialTest(t, ws)
	defer conn.Close()
	waitForClients(t, ws, 1)

	sent := &spectro.Frame{
		Seq:       7,
		Timestamp: time.Now(),
		Levels:    []float64{-60, -30, -12.5},
	}
	if err := ws.Send(sent); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got spectro.Frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	if got.Seq != sent.Seq {
		t.Errorf("received seq %d, want %d", got.Seq, sent.Seq)
	}
	if len(got.Levels) != 3 || got.Levels[1] != -30 {
		t.Errorf("received levels %v, want %v", got.Levels, sent.Levels)
	}
}

func TestWebSocketMultipleClients(t *testing.T) {
	ws, err := NewWebSocketServer("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	a := dialTest(t, ws)
	defer a.Close()
	b := dialTest(t, ws)
	defer b.Close()
	waitForClients(t, ws, 2)

	ws.Send(&spectro.Frame{Seq: 1, Timestamp: time.Now(), Levels: []float64{-10}})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got spectro.Frame
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client did not receive broadcast: %v", err)
		}
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	ws, err := NewWebSocketServer("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	conn := dialTest(t, ws)
	waitForClients(t, ws, 1)

	conn.Close()
	waitForClients(t, ws, 0)

	// Broadcasting with no clients must not fail.
	if err := ws.Send(&spectro.Frame{Seq: 2, Levels: []float64{-5}}); err != nil {
		t.Errorf("Send with no clients returned %v", err)
	}
}

func TestWebSocketClose(t *testing.T) {
	ws, err := NewWebSocketServer("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	conn := dialTest(t, ws)
	defer conn.Close()
	waitForClients(t, ws, 1)

	if err := ws.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("client connection survived server Close")
	}
}
