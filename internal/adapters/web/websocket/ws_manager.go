package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
	"github.com/lcalzada-xor/floodctl/internal/core/ports"
)

// Message types pushed to dashboard clients.
const (
	TypeCurrent = "verdict.current"
	TypeVerdict = "verdict"
	TypeStats   = "stats"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSManager broadcasts verdict changes and statistics emissions to
// connected dashboards.
type WSManager struct {
	upgrader gws.Upgrader
	current  func() domain.NameSet
	clients  map[*gws.Conn]struct{}
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewWSManager builds a manager. current supplies the verdict sent to a client
// on connect. An empty allowedOrigins list accepts same-origin requests only.
func NewWSManager(current func() domain.NameSet, allowedOrigins []string, logger *slog.Logger) *WSManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &WSManager{
		current: current,
		clients: make(map[*gws.Conn]struct{}),
		logger:  logger,
	}
	m.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			m.logger.Warn("WebSocket origin rejected", "origin", origin)
			return false
		},
	}
	return m
}

// HandleWebSocket upgrades the request and registers the client.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	var names []domain.Name
	if m.current != nil {
		names = m.current().Sorted()
	}
	data, err := json.Marshal(WSMessage{Type: TypeCurrent, Payload: map[string]interface{}{"names": names}})
	if err != nil {
		conn.Close()
		return
	}

	m.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(gws.TextMessage, data); err != nil {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.clients[conn] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("WebSocket connected", "remote", r.RemoteAddr)

	go func() {
		defer m.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *WSManager) drop(conn *gws.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	conn.Close()
}

// OnVerdict broadcasts an announced verdict.
func (m *WSManager) OnVerdict(v domain.Verdict) {
	m.broadcastMessage(WSMessage{Type: TypeVerdict, Payload: v})
}

// OnStats broadcasts a statistics emission.
func (m *WSManager) OnStats(e domain.StatsEmission) {
	m.broadcastMessage(WSMessage{Type: TypeStats, Payload: e})
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Close disconnects every client.
func (m *WSManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.WriteControl(gws.CloseMessage,
			gws.FormatCloseMessage(gws.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(m.clients, conn)
	}
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("WebSocket marshal failed", "type", msg.Type, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(gws.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

var (
	_ ports.VerdictObserver = (*WSManager)(nil)
	_ ports.StatsObserver   = (*WSManager)(nil)
)
