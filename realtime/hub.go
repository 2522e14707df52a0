package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 64
)

// Message types exchanged with clients
const (
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
	TypeNodeMoved    = "node_moved"
	TypeNodeUpdated  = "node_updated"
	TypeEdgeUpdated  = "edge_updated"
	TypeGraphUpdated = "graph_updated"
)

var broadcastTypes = []string{TypeNodeMoved, TypeNodeUpdated, TypeEdgeUpdated, TypeGraphUpdated}

// NodeMover persists node positions carried by node_moved messages
type NodeMover interface {
	MoveNode(ctx context.Context, nodeID int64, x, y, z float64) error
}

// Hub tracks connected clients per graph
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	mover    NodeMover

	mu     sync.RWMutex
	rooms  map[int64]map[*client]struct{}
	closed bool
}

// Option configures a Hub
type Option func(*Hub)

// WithNodeMover makes node_moved messages update the stored node before broadcast
func WithNodeMover(m NodeMover) Option {
	return func(h *Hub) {
		h.mover = m
	}
}

// NewHub creates a Hub. allowedOrigins restricts the Origin header of
// upgrade requests; empty allows any origin.
func NewHub(logger *zap.Logger, allowedOrigins []string, opts ...Option) *Hub {
	h := &Hub{
		logger: logger,
		rooms:  make(map[int64]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type client struct {
	id      string
	graphID int64
	conn    *websocket.Conn
	send    chan []byte
	once    sync.Once
}

func (c *client) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// ServeWS upgrades the request and serves the connection until it closes
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, graphID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{
		id:      uuid.New().String(),
		graphID: graphID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	log := h.logger.With(zap.String("connection_id", c.id), zap.Int64("graph_id", graphID))
	log.Info("websocket client connected")

	go h.writePump(c, log)
	h.readPump(r.Context(), c, log)

	h.unregister(c)
	log.Info("websocket client disconnected")
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	room, ok := h.rooms[c.graphID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.graphID] = room
	}
	room[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if room, ok := h.rooms[c.graphID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.graphID)
		}
	}
	c.closeSend()
}

func (h *Hub) readPump(ctx context.Context, c *client, log *zap.Logger) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		h.handle(ctx, c, data, log)
	}
}

// writePump is the only goroutine writing to c.conn
func (h *Hub) writePump(c *client, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *client, data []byte, log *zap.Logger) {
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(c, errorMessage("Invalid JSON"))
		return
	}

	msgType, _ := msg["type"].(string)
	switch {
	case msgType == TypePing:
		h.reply(c, map[string]any{"type": TypePong})
	case slices.Contains(broadcastTypes, msgType):
		if msgType == TypeNodeMoved {
			h.persistMove(ctx, c.graphID, msg, log)
		}
		h.Broadcast(c.graphID, msg)
	default:
		h.reply(c, errorMessage("Unknown message type: "+msgType))
	}
}

func (h *Hub) persistMove(ctx context.Context, graphID int64, msg map[string]any, log *zap.Logger) {
	if h.mover == nil {
		return
	}
	nodeID, okID := msg["node_id"].(float64)
	x, okX := msg["x"].(float64)
	y, okY := msg["y"].(float64)
	z, okZ := msg["z"].(float64)
	if !okID || !okX || !okY || !okZ {
		return
	}
	if err := h.mover.MoveNode(ctx, int64(nodeID), x, y, z); err != nil {
		log.Warn("failed to persist node move", zap.Int64("graph_id", graphID), zap.Float64("node_id", nodeID), zap.Error(err))
	}
}

func errorMessage(text string) map[string]any {
	return map[string]any{"type": TypeError, "message": text}
}

// reply queues a message for one client
func (h *Hub) reply(c *client, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.enqueueLocked(c, payload)
}

// Broadcast sends msg to every client of graphID
func (h *Hub) Broadcast(graphID int64, msg any) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[graphID] {
		h.enqueueLocked(c, payload)
	}
}

// enqueueLocked drops clients that cannot keep up
func (h *Hub) enqueueLocked(c *client, payload []byte) {
	if _, ok := h.rooms[c.graphID][c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("dropping slow websocket client", zap.String("connection_id", c.id))
		h.removeLocked(c)
	}
}

// ConnectionCount returns the number of clients in graphID's room
func (h *Hub) ConnectionCount(graphID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[graphID])
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, room := range h.rooms {
		for c := range room {
			h.removeLocked(c)
		}
	}
}
