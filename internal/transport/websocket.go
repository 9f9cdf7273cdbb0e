// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 512
	broadcastQueue = 256
)

// WebSocketTransport broadcasts every payload as JSON to all clients connected
// on /ws and accepts key commands from them.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	listener  net.Listener
	onCommand CommandHandler

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates a transport for addr. Call Start to listen.
func NewWebSocketTransport(addr string, onCommand CommandHandler) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Visualizer clients are served from anywhere.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		onCommand: onCommand,
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return wst
}

// Handler exposes the HTTP handler, e.g. for mounting under another server.
func (wst *WebSocketTransport) Handler() http.Handler { return wst.server.Handler }

// Start binds the listen address and serves in the background. Bind errors are
// returned, later serve errors are logged.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	logger.Infof("websocket: serving on %s/ws", ln.Addr())

	wst.wg.Add(1)
	go func() {
		defer wst.wg.Done()
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("websocket: server error: %v", err)
		}
	}()
	wst.startBroadcaster()
	return nil
}

// Addr returns the bound address once started.
func (wst *WebSocketTransport) Addr() string {
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

func (wst *WebSocketTransport) startBroadcaster() {
	wst.wg.Add(1)
	go func() {
		defer wst.wg.Done()
		wst.handleBroadcasts()
	}()
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket: upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	logger.Infof("websocket: client %s connected, total: %d", conn.RemoteAddr(), total)

	go wst.readCommands(conn)
}

// readCommands runs until the client disconnects.
func (wst *WebSocketTransport) readCommands(conn *websocket.Conn) {
	defer wst.drop(conn)
	conn.SetReadLimit(maxMessageSize)
	for {
		var cmd Command
		err := conn.ReadJSON(&cmd)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			logger.Debugf("websocket: bad command from %s: %v", conn.RemoteAddr(), err)
			continue
		case err != nil:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket: read error: %v", err)
			}
			return
		}
		if wst.onCommand != nil {
			wst.onCommand(cmd)
		}
	}
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, known := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if known {
		logger.Infof("websocket: client disconnected, total: %d", total)
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					logger.Warnf("websocket: error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. When the queue is full the payload is
// dropped; clients only care about the latest frame.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case wst.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects every client and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		logger.Infof("websocket: closing server")
		close(wst.done)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = wst.server.Shutdown(ctx)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		wst.wg.Wait()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
