package server

import (
	"encoding/json"
	"sync"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/session"
	"go.uber.org/zap"
)

const (
	defaultOutboxSize = 256
	eventSessionReady = "session_ready"
	eventError        = "error"
)

// Envelope is the JSON frame exchanged over the WebSocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub is the transport adapter: it owns per-connection outboxes and room groups.
// Enqueueing never blocks; a connection whose outbox is full is marked
// overflowed and its writer closes the socket.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*hubConnection
	groups      map[canvas.RoomID]map[string]*hubConnection
	outboxSize  int
	logger      *zap.Logger
}

type hubConnection struct {
	id           string
	outbox       chan []byte
	overflow     chan struct{}
	overflowOnce sync.Once
}

func NewHub(outboxSize int, logger *zap.Logger) *Hub {
	if outboxSize <= 0 {
		outboxSize = defaultOutboxSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections: make(map[string]*hubConnection),
		groups:      make(map[canvas.RoomID]map[string]*hubConnection),
		outboxSize:  outboxSize,
		logger:      logger,
	}
}

// register creates the outbox of a connection. The returned cleanup removes the
// connection from the hub and every group it belongs to.
func (h *Hub) register(connectionID string) (*hubConnection, func()) {
	connection := &hubConnection{
		id:       connectionID,
		outbox:   make(chan []byte, h.outboxSize),
		overflow: make(chan struct{}),
	}
	h.mu.Lock()
	h.connections[connectionID] = connection
	h.mu.Unlock()
	cleanup := func() {
		h.unregister(connectionID)
	}
	return connection, cleanup
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) JoinGroup(roomID canvas.RoomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	connection, ok := h.connections[connectionID]
	if !ok {
		return
	}
	if _, exists := h.groups[roomID]; !exists {
		h.groups[roomID] = make(map[string]*hubConnection)
	}
	h.groups[roomID][connectionID] = connection
}

func (h *Hub) LeaveGroup(roomID canvas.RoomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveGroupLocked(roomID, connectionID)
}

func (h *Hub) SendTo(connectionID string, message session.Message) {
	frame, ok := h.encode(message)
	if !ok {
		return
	}
	h.mu.RLock()
	connection := h.connections[connectionID]
	h.mu.RUnlock()
	if connection == nil {
		return
	}
	h.enqueue(connection, frame)
}

func (h *Hub) Broadcast(roomID canvas.RoomID, message session.Message, excludeConnectionID string) {
	h.mu.RLock()
	members := h.groups[roomID]
	if len(members) == 0 {
		h.mu.RUnlock()
		return
	}
	recipients := make([]*hubConnection, 0, len(members))
	for connectionID, connection := range members {
		if connectionID == excludeConnectionID {
			continue
		}
		recipients = append(recipients, connection)
	}
	h.mu.RUnlock()
	if len(recipients) == 0 {
		return
	}

	frame, ok := h.encode(message)
	if !ok {
		return
	}
	for _, connection := range recipients {
		h.enqueue(connection, frame)
	}
}

func (h *Hub) enqueue(connection *hubConnection, frame []byte) {
	select {
	case <-connection.overflow:
		return
	default:
	}
	select {
	case connection.outbox <- frame:
	default:
		connection.overflowOnce.Do(func() {
			close(connection.overflow)
		})
		h.logger.Warn("connection outbox full, disconnecting", zap.String("connection_id", connection.id))
	}
}

func (h *Hub) encode(message session.Message) ([]byte, bool) {
	frame, err := json.Marshal(outboundEnvelope{Event: message.Event, Data: message.Payload})
	if err != nil {
		h.logger.Error("failed to encode outbound event", zap.String("event", message.Event), zap.Error(err))
		return nil, false
	}
	return frame, true
}

func (h *Hub) unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, connectionID)
	for roomID := range h.groups {
		h.leaveGroupLocked(roomID, connectionID)
	}
}

func (h *Hub) leaveGroupLocked(roomID canvas.RoomID, connectionID string) {
	members := h.groups[roomID]
	if members == nil {
		return
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(h.groups, roomID)
	}
}
