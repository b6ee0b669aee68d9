package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/luckydraw/go/internal/game/events"
	"github.com/rs/zerolog/log"
)

var (
	ErrBroadcastBufferFull = errors.New("broadcast channel full")
	ErrConnectionClosed    = errors.New("connection closed")
	ErrSendBufferFull      = errors.New("connection send buffer full")
)

// ClientHandler reacts to connection lifecycle and client requests.
type ClientHandler interface {
	OnConnect(ctx context.Context, conn *Connection)
	OnRequest(ctx context.Context, conn *Connection, raw []byte)
}

// ConnectionManager manages the WebSocket connections of the game lobby
type ConnectionManager struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  ClientHandler

	broadcastCh chan *events.Message
	now         func() time.Time
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	UserID  string
	Conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	Manager *ConnectionManager

	ConnectedAt time.Time
	lastPingMu  sync.Mutex
	lastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// ConnectionStats is served on /ws/stats.
type ConnectionStats struct {
	TotalConnections int              `json:"total_connections"`
	Users            map[string]int   `json:"users"`
	Connections      []ConnectionInfo `json:"connections"`
}

type ConnectionInfo struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ConnectedAt time.Time `json:"connected_at"`
	LastPing    time.Time `json:"last_ping"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, handler ClientHandler) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		handler:     handler,
		broadcastCh: make(chan *events.Message, 1000),
		now:         time.Now,
	}
}

// Start processes broadcast messages until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case msg := <-cm.broadcastCh:
			cm.handleBroadcast(msg)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and greets the client.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := cm.now()
	conn := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Conn:        ws,
		send:        make(chan []byte, cm.config.SendBufferSize),
		done:        make(chan struct{}),
		Manager:     cm,
		ConnectedAt: now,
		lastPing:    now,
	}

	cm.registerConnection(conn)

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", userID).
		Msg("WebSocket connection established")

	if cm.handler != nil {
		cm.handler.OnConnect(context.WithoutCancel(r.Context()), conn)
	}
	return conn, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	_, exists := cm.connections[conn]
	delete(cm.connections, conn)
	cm.mu.Unlock()

	conn.once.Do(func() { close(conn.done) })
	if exists {
		log.Info().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection unregistered")
	}
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for c := range cm.connections {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		cm.unregisterConnection(c)
		c.Conn.Close()
	}
}

// Broadcast queues msg for every local connection. It never blocks; a full
// queue drops the message.
func (cm *ConnectionManager) Broadcast(ctx context.Context, msg *events.Message) error {
	select {
	case cm.broadcastCh <- msg:
		return nil
	default:
		log.Warn().Str("type", string(msg.Type)).Msg("broadcast channel full, dropping message")
		return ErrBroadcastBufferFull
	}
}

func (cm *ConnectionManager) handleBroadcast(msg *events.Message) {
	cm.mu.RLock()
	targets := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	// Marshal the message once
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	for _, conn := range targets {
		if err := conn.enqueue(data); errors.Is(err, ErrSendBufferFull) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("type", string(msg.Type)).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		TotalConnections: len(cm.connections),
		Users:            make(map[string]int),
		Connections:      make([]ConnectionInfo, 0, len(cm.connections)),
	}
	for conn := range cm.connections {
		stats.Users[conn.UserID]++
		stats.Connections = append(stats.Connections, ConnectionInfo{
			ID:          conn.ID,
			UserID:      conn.UserID,
			ConnectedAt: conn.ConnectedAt,
			LastPing:    conn.LastPing(),
		})
	}
	return stats
}

// Send marshals msg and queues it for this connection.
func (c *Connection) Send(msg *events.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}
	return c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// LastPing is the time of the last ping sent or pong received.
func (c *Connection) LastPing() time.Time {
	c.lastPingMu.Lock()
	defer c.lastPingMu.Unlock()
	return c.lastPing
}

func (c *Connection) touch() {
	c.lastPingMu.Lock()
	c.lastPing = c.Manager.now()
	c.lastPingMu.Unlock()
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	cfg := c.Manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.touch()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	cfg := c.Manager.config
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		if c.Manager.handler != nil {
			c.Manager.handler.OnRequest(context.Background(), c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
