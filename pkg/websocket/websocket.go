package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"MediRoute/pkg/logger"
	"MediRoute/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is the frame pushed to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Group     string      `json:"group,omitempty"`
}

type Config struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	MaxMessageSize    int64
	SendBuffer        int
	CheckOrigin       func(r *http.Request) bool
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    4096,
		SendBuffer:        64,
	}
}

type Connection struct {
	ID     string
	conn   *websocket.Conn
	send   chan []byte
	groups map[string]bool
	once   sync.Once
}

func (c *Connection) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks live connections by group. Group membership is decided by the
// server when the connection is accepted.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[string]*Connection
	groups map[string]map[string]*Connection
}

func NewHub(cfg Config) *Hub {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		conns:  make(map[string]*Connection),
		groups: make(map[string]map[string]*Connection),
	}
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.conns[c.ID]; ok {
		h.unregisterLocked(old)
	}
	h.conns[c.ID] = c
	for g := range c.groups {
		if h.groups[g] == nil {
			h.groups[g] = make(map[string]*Connection)
		}
		h.groups[g][c.ID] = c
	}
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[c.ID]; ok && cur == c {
		h.unregisterLocked(c)
	}
}

func (h *Hub) unregisterLocked(c *Connection) {
	delete(h.conns, c.ID)
	for g := range c.groups {
		delete(h.groups[g], c.ID)
		if len(h.groups[g]) == 0 {
			delete(h.groups, g)
		}
	}
	c.close()
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// SendToGroup delivers ev to every connection in group. A connection whose
// buffer is full misses the frame.
func (h *Hub) SendToGroup(group string, ev sse.Event) {
	data, err := json.Marshal(Message{Type: ev.Name, Data: ev.Data, Timestamp: time.Now().Unix(), Group: group})
	if err != nil {
		logger.Warn("encode websocket message failed", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.groups[group] {
		select {
		case c.send <- data:
		default:
			logger.Warn("websocket send buffer full", zap.String("conn", c.ID))
		}
	}
}

// Serve upgrades the request and pumps frames until either side closes.
func (h *Hub) Serve(c *gin.Context, id string, groups ...string) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &Connection{
		ID:     id,
		conn:   ws,
		send:   make(chan []byte, h.cfg.SendBuffer),
		groups: make(map[string]bool, len(groups)),
	}
	for _, g := range groups {
		conn.groups[g] = true
	}
	h.register(conn)

	go h.writePump(conn)
	h.readPump(conn)
}

// readPump answers ping frames and detects disconnects. Clients cannot join
// groups on their own.
func (h *Hub) readPump(c *Connection) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.HeartbeatInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.cfg.HeartbeatInterval))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if json.Unmarshal(raw, &msg) != nil || msg.Type != "ping" {
			continue
		}
		pong, _ := json.Marshal(Message{Type: "pong", Timestamp: time.Now().Unix()})
		h.mu.RLock()
		if h.conns[c.ID] == c {
			select {
			case c.send <- pong:
			default:
			}
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) writePump(c *Connection) {
	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
