// internal/websocket/server.go
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pageforge/internal/coordinator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local use only
	},
}

// Session is the logical session the server binds connections to
type Session interface {
	Attach(conn coordinator.Conn)
	Detach(conn coordinator.Conn)
	Enqueue(conn coordinator.Conn, cmd coordinator.Command)
}

// Server accepts WebSocket connections and feeds their commands to the
// logical session
type Server struct {
	port         int
	authKey      string
	pingInterval time.Duration
	session      Session
	clients      map[string]*Client
	clientsMu    sync.RWMutex
	httpServer   *http.Server
}

// NewServer creates a new WebSocket server. port 0 picks an ephemeral port.
func NewServer(session Session, port int, pingInterval time.Duration) *Server {
	return &Server{
		port:         port,
		authKey:      os.Getenv("PAGEFORGE_AUTH_KEY"),
		pingInterval: pingInterval,
		session:      session,
		clients:      make(map[string]*Client),
	}
}

// Start begins listening and prints the readiness line with the bound port
func (s *Server) Start(ctx context.Context) (int, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return 0, fmt.Errorf("failed to listen: %w", err)
	}

	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			log.Printf("[WebSocket] Server error: %v", err)
		}
	}()

	// Readiness line for the embedding process to scrape
	fmt.Printf("PAGEFORGE_WS_READY:port=%d\n", s.port)

	return s.port, nil
}

// Stop closes every client and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Port returns the bound port
func (s *Server) Port() int {
	return s.port
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.authKey != "" {
		if r.Header.Get("X-Auth-Key") != s.authKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Upgrade failed: %v", err)
		return
	}

	client := NewClient(uuid.New().String(), conn)

	s.clientsMu.Lock()
	s.clients[client.ID()] = client
	s.clientsMu.Unlock()

	log.Printf("[WebSocket] Client %s connected", client.ID())
	s.session.Attach(client)

	go client.writePump(s.pingInterval)
	go s.readPump(client)
}

// readPump reads inbound commands until the connection drops. A missed
// pong trips the read deadline, which surfaces here as a read error and
// detaches the client like any other disconnect.
func (s *Server) readPump(client *Client) {
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID())
		s.clientsMu.Unlock()

		s.session.Detach(client)
		client.Close()
		log.Printf("[WebSocket] Client %s disconnected", client.ID())
	}()

	// One probe interval plus slack for the pong to travel; a peer that
	// misses a single probe is declared dead
	pongWait := s.pingInterval + s.pingInterval/2
	client.conn.SetReadLimit(1 << 20)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Read error from %s: %v", client.ID(), err)
			}
			return
		}

		var cmd coordinator.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			client.SendMessage("error", map[string]interface{}{"message": "malformed command"})
			continue
		}

		s.session.Enqueue(client, cmd)
	}
}

// BroadcastEvent sends an event to every connected client
func (s *Server) BroadcastEvent(eventType string, payload interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		if err := client.SendMessage(eventType, payload); err != nil {
			log.Printf("[WebSocket] Failed to send %s to %s: %v", eventType, client.ID(), err)
		}
	}
}
