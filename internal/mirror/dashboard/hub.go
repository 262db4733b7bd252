// Package dashboard pushes mirror events to browsers over WebSocket.
//
// The hub broadcasts resync completions, clears, and fresh statistics to every
// connected client so the front end can reload without polling.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeSyncComplete indicates a resync replaced the mirror
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeCleared indicates the mirror was emptied
	MessageTypeCleared MessageType = "cleared"

	// MessageTypeStats carries current mirror statistics
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Config holds hub configuration
type Config struct {
	// BufferSize is the broadcast queue length (default: 100)
	BufferSize int

	// Welcome builds the first message sent to a new client (default: empty stats message)
	Welcome func(ctx context.Context) Message

	// Logger for hub activity (default: log.Default())
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 100,
		Logger:     log.Default(),
	}
}

// Hub manages WebSocket connections and broadcasts dashboard messages.
// It is an http.Handler meant to be mounted at /ws.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message
	welcome   func(ctx context.Context) Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewHub creates a hub and starts its broadcast loop.
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, config.BufferSize),
		welcome:   config.Welcome,
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}

	h.wg.Add(1)
	go h.broadcastLoop()

	return h
}

// Stop closes every client connection and stops the broadcast loop.
func (h *Hub) Stop() {
	h.logger.Println("Stopping dashboard hub")

	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	h.wg.Wait()
}

// Broadcast queues a message for all connected clients.
// The message is dropped if the queue is full.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
		return
	default:
		h.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients
func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case msg := <-h.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					h.logger.Printf("Failed to send to client: %v", err)
					h.removeClient(conn)
				}
			}
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = true
	clientCount := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Printf("Client connected (total: %d)", clientCount)

	h.clientsMu.RLock()
	welcomeFn := h.welcome
	h.clientsMu.RUnlock()

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	welcome := Message{Type: MessageTypeStats}
	if welcomeFn != nil {
		welcome = welcomeFn(ctx)
	}
	if welcome.Timestamp.IsZero() {
		welcome.Timestamp = time.Now()
	}
	welcomeData, _ := json.Marshal(welcome)
	_ = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()

	// The handler must not return before the connection is done with.
	h.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.removeClient(conn)

	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
		// Client messages are ignored.
	}
}

// removeClient safely removes a client connection
func (h *Hub) removeClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, exists := h.clients[conn]; exists {
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		h.clientsMu.Unlock()
	}
}

// SetWelcome replaces the function building the first message for new clients.
func (h *Hub) SetWelcome(fn func(ctx context.Context) Message) {
	h.clientsMu.Lock()
	h.welcome = fn
	h.clientsMu.Unlock()
}

// ClientCount returns the current number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
