package relay

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/yeonbit/avalink/internal/signal"
	"github.com/yeonbit/avalink/internal/util"
)

// DefaultAddr is the relay's default listen address.
const DefaultAddr = ":3001"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the signaling relay's HTTP front: a liveness response on "/" and
// the WebSocket upgrade on "/ws".
type Server struct {
	hub      *Hub
	listener net.Listener
}

// NewServer creates a server around the given hub. The caller is expected to
// have the hub's Run loop going before Start.
func NewServer(hub *Hub) *Server {
	return &Server{hub: hub}
}

// Start begins listening on addr and serves in a background goroutine.
// Returns the bound port (useful with ":0").
func (s *Server) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start relay server: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

// handleRoot answers liveness probes.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("avalink relay is running\n"))
}

// handleWS upgrades the connection and starts its pumps. The peer is not in
// any room until it sends a join.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.LogWarning("websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		hub:  s.hub,
		conn: conn,
		out:  make(chan signal.Message, outBufferSize),
	}

	go c.writePump()
	go c.readPump()
}

// Close shuts down the listener, preventing new connections. Established
// connections drain through their own pumps.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}
