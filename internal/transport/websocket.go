// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"specviz/internal/log"
	"specviz/internal/spectro"
)

// WebSocketServer serves spectrum frames as JSON over a /ws endpoint.
// Every connected client receives every broadcast frame; clients that
// cannot keep up are disconnected rather than buffered.
type WebSocketServer struct {
	addr      string
	upgrader  websocket.Upgrader
	server    *http.Server
	broadcast chan *spectro.Frame

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocketServer starts listening on addr and begins accepting
// clients immediately.
func NewWebSocketServer(addr string) (*WebSocketServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %q: %w", addr, err)
	}

	ws := &WebSocketServer{
		addr: ln.Addr().String(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan *spectro.Frame, 64),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleClient)
	ws.server = &http.Server{Handler: mux}

	go func() {
		log.Infof("transport: websocket listening on %s", ws.addr)
		if err := ws.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("transport: websocket server: %v", err)
		}
	}()
	go ws.run()

	return ws, nil
}

// Addr returns the bound listen address, useful when addr requested an
// ephemeral port.
func (ws *WebSocketServer) Addr() string {
	return ws.addr
}

// Clients reports the current number of connected consumers.
func (ws *WebSocketServer) Clients() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

// Send queues a frame for broadcast. A full queue drops the frame; the
// next one supersedes it anyway.
func (ws *WebSocketServer) Send(frame *spectro.Frame) error {
	select {
	case ws.broadcast <- frame:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the HTTP server down.
func (ws *WebSocketServer) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		close(ws.done)

		ws.clientsMu.Lock()
		for conn := range ws.clients {
			conn.Close()
		}
		ws.clients = make(map[*websocket.Conn]bool)
		ws.clientsMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = ws.server.Shutdown(ctx)
	})
	return err
}

func (ws *WebSocketServer) handleClient(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("transport: websocket upgrade failed: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	total := len(ws.clients)
	ws.clientsMu.Unlock()
	log.Infof("transport: websocket client connected (%d total)", total)

	// Drain the read side to notice disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ws.dropClient(conn)
				return
			}
		}
	}()
}

func (ws *WebSocketServer) dropClient(conn *websocket.Conn) {
	ws.clientsMu.Lock()
	if ws.clients[conn] {
		delete(ws.clients, conn)
		conn.Close()
		log.Infof("transport: websocket client disconnected (%d total)", len(ws.clients))
	}
	ws.clientsMu.Unlock()
}

func (ws *WebSocketServer) run() {
	for {
		select {
		case <-ws.done:
			return
		case frame := <-ws.broadcast:
			ws.clientsMu.Lock()
			for conn := range ws.clients {
				conn.SetWriteDeadline(time.Now().Add(time.Second))
				if err := conn.WriteJSON(frame); err != nil {
					delete(ws.clients, conn)
					conn.Close()
					log.Warnf("transport: dropping slow websocket client: %v", err)
				}
			}
			ws.clientsMu.Unlock()
		}
	}
}

var _ Transport = (*WebSocketServer)(nil)
