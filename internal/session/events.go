package session

import (
	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
)

// Outbound event names.
const (
	EventLoadHistory      = "load_history"
	EventUsersUpdate      = "users_update"
	EventRemoteDrawing    = "remote_drawing"
	EventCursorUpdate     = "cursor_update"
	EventStrokeRemoved    = "stroke_removed"
	EventStrokeRestored   = "stroke_restored"
	EventCanvasCleared    = "canvas_cleared"
	EventUserDisconnected = "user_disconnected"
)

// Message is one outbound event handed to the transport.
type Message struct {
	Event   string
	Payload any
}

// CursorUpdate is the payload of EventCursorUpdate.
type CursorUpdate struct {
	UserID string       `json:"userId"`
	Cursor canvas.Point `json:"cursor"`
	Color  string       `json:"color"`
}

// Transport delivers messages to connections and exposes room-scoped multicast.
// Implementations must enqueue without blocking on network I/O; calls for one
// recipient are delivered in call order.
type Transport interface {
	JoinGroup(roomID canvas.RoomID, connectionID string)
	LeaveGroup(roomID canvas.RoomID, connectionID string)
	SendTo(connectionID string, message Message)
	Broadcast(roomID canvas.RoomID, message Message, excludeConnectionID string)
}
