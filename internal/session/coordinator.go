// Package session binds per-connection input events to per-room broadcasts.
// Each room's store mutations and broadcast decisions run inside that room's
// exclusive section; unrelated rooms never wait on each other.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/activity"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/history"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/membership"
	"go.uber.org/zap"
)

const activityTimeout = 2 * time.Second

var (
	errMissingRegistry  = errors.New("membership registry dependency required")
	errMissingHistory   = errors.New("history store dependency required")
	errMissingTransport = errors.New("transport dependency required")
)

// ActivityRecorder receives room lifecycle events after they have been applied.
type ActivityRecorder interface {
	Record(ctx context.Context, entry activity.Entry) error
}

type Config struct {
	Registry    *membership.Registry
	History     *history.Store
	Transport   Transport
	Activity    ActivityRecorder
	Clock       func() time.Time
	ColorPicker func() string
	Logger      *zap.Logger
}

// Coordinator is the session protocol layer. All of its methods are safe for
// concurrent use; events of one connection must be submitted in arrival order.
type Coordinator struct {
	registry  *membership.Registry
	history   *history.Store
	transport Transport
	activity  ActivityRecorder
	clock     func() time.Time
	pickColor func() string
	logger    *zap.Logger
	locks     *roomLocks

	mu          sync.Mutex
	connections map[string]*connectionState
}

type connectionState struct {
	color  string
	room   canvas.RoomID
	inRoom bool
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Registry == nil {
		return nil, errMissingRegistry
	}
	if cfg.History == nil {
		return nil, errMissingHistory
	}
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	pickColor := cfg.ColorPicker
	if pickColor == nil {
		pickColor = RandomColor
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		registry:    cfg.Registry,
		history:     cfg.History,
		transport:   cfg.Transport,
		activity:    cfg.Activity,
		clock:       clock,
		pickColor:   pickColor,
		logger:      logger,
		locks:       newRoomLocks(),
		connections: make(map[string]*connectionState),
	}, nil
}

// Connect registers a new connection and returns its display color. Calling it
// again for a known connection keeps the original color.
func (c *Coordinator) Connect(connectionID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.connections[connectionID]; ok {
		return state.color
	}
	state := &connectionState{color: c.pickColor()}
	c.connections[connectionID] = state
	return state.color
}

// Join moves the connection into the room. The requester receives the full
// history before the room receives the updated member list.
func (c *Coordinator) Join(ctx context.Context, connectionID string, roomID canvas.RoomID) {
	color, previous, inRoom, known := c.snapshot(connectionID)
	if !known {
		c.logger.Debug("join from unknown connection dropped", zap.String("connection_id", connectionID))
		return
	}
	if inRoom && previous != roomID {
		c.leaveRoom(ctx, connectionID, previous)
	}

	release := c.locks.acquire(roomID)
	presence := membership.Presence{Color: color}
	if existing, ok := c.registry.Member(roomID, connectionID); ok {
		presence.Cursor = existing.Cursor
	}
	c.registry.Join(roomID, connectionID, presence)
	c.transport.JoinGroup(roomID, connectionID)
	c.setRoom(connectionID, roomID, true)
	c.transport.SendTo(connectionID, Message{Event: EventLoadHistory, Payload: c.history.History(roomID)})
	c.transport.Broadcast(roomID, Message{Event: EventUsersUpdate, Payload: c.registry.ListMembers(roomID)}, "")
	release()

	c.logger.Info("connection joined room",
		zap.String("connection_id", connectionID),
		zap.String("room_id", roomID.String()))
	c.record(ctx, activity.Entry{RoomID: roomID.String(), ConnectionID: connectionID, Kind: activity.KindJoined})
}

// DrawingStep commits a stroke and relays it to every other room member.
func (c *Coordinator) DrawingStep(ctx context.Context, connectionID string, stroke canvas.Stroke) {
	roomID, ok := c.currentRoom(connectionID)
	if !ok {
		c.dropped("drawing_step", connectionID)
		return
	}

	release := c.locks.acquire(roomID)
	defer release()
	if _, member := c.registry.Member(roomID, connectionID); !member {
		c.dropped("drawing_step", connectionID)
		return
	}
	segment := stroke.Commit(connectionID, c.clock().UnixMilli())
	c.history.Append(roomID, segment)
	c.transport.Broadcast(roomID, Message{Event: EventRemoteDrawing, Payload: segment}, connectionID)
}

// MoveCursor stores the pointer position and relays it to every other member.
func (c *Coordinator) MoveCursor(ctx context.Context, connectionID string, position canvas.Point) {
	roomID, ok := c.currentRoom(connectionID)
	if !ok {
		c.dropped("cursor_move", connectionID)
		return
	}

	release := c.locks.acquire(roomID)
	defer release()
	c.registry.UpdateCursor(roomID, connectionID, position)
	member, present := c.registry.Member(roomID, connectionID)
	if !present {
		c.dropped("cursor_move", connectionID)
		return
	}
	c.transport.Broadcast(roomID, Message{
		Event: EventCursorUpdate,
		Payload: CursorUpdate{
			UserID: connectionID,
			Cursor: position,
			Color:  member.Color,
		},
	}, connectionID)
}

// Undo removes the gesture owning the newest segment of the room, whoever drew it.
func (c *Coordinator) Undo(ctx context.Context, connectionID string) {
	roomID, ok := c.currentRoom(connectionID)
	if !ok {
		c.dropped("undo", connectionID)
		return
	}

	release := c.locks.acquire(roomID)
	gestureID, removed := c.history.UndoLast(roomID)
	if removed {
		c.transport.Broadcast(roomID, Message{Event: EventStrokeRemoved, Payload: gestureID.String()}, "")
	}
	release()

	if removed {
		c.record(ctx, activity.Entry{
			RoomID:       roomID.String(),
			ConnectionID: connectionID,
			Kind:         activity.KindUndo,
			Detail:       gestureID.String(),
		})
	}
}

// Redo restores the most recently undone gesture of the room.
func (c *Coordinator) Redo(ctx context.Context, connectionID string) {
	roomID, ok := c.currentRoom(connectionID)
	if !ok {
		c.dropped("redo", connectionID)
		return
	}

	release := c.locks.acquire(roomID)
	restored, found := c.history.RedoLast(roomID)
	if found {
		c.transport.Broadcast(roomID, Message{Event: EventStrokeRestored, Payload: restored}, "")
	}
	release()

	if found && len(restored) > 0 {
		c.record(ctx, activity.Entry{
			RoomID:       roomID.String(),
			ConnectionID: connectionID,
			Kind:         activity.KindRedo,
			Detail:       restored[0].GestureID.String(),
		})
	}
}

// ClearCanvas empties the room history and tells every member, sender included.
func (c *Coordinator) ClearCanvas(ctx context.Context, connectionID string) {
	roomID, ok := c.currentRoom(connectionID)
	if !ok {
		c.dropped("clear_canvas", connectionID)
		return
	}

	release := c.locks.acquire(roomID)
	c.history.Clear(roomID)
	c.transport.Broadcast(roomID, Message{Event: EventCanvasCleared}, "")
	release()

	c.record(ctx, activity.Entry{RoomID: roomID.String(), ConnectionID: connectionID, Kind: activity.KindCleared})
}

// Leave takes the connection out of its room and keeps it connected.
func (c *Coordinator) Leave(ctx context.Context, connectionID string) {
	roomID, ok := c.currentRoom(connectionID)
	if !ok {
		return
	}
	c.leaveRoom(ctx, connectionID, roomID)
}

// Disconnect runs the leave path and forgets the connection.
func (c *Coordinator) Disconnect(ctx context.Context, connectionID string) {
	c.Leave(ctx, connectionID)
	c.mu.Lock()
	delete(c.connections, connectionID)
	c.mu.Unlock()
}

// CurrentRoom reports the room the connection is in.
func (c *Coordinator) CurrentRoom(connectionID string) (canvas.RoomID, bool) {
	return c.currentRoom(connectionID)
}

// RoomCount returns the number of live rooms.
func (c *Coordinator) RoomCount() int {
	return c.registry.RoomCount()
}

func (c *Coordinator) leaveRoom(ctx context.Context, connectionID string, roomID canvas.RoomID) {
	release := c.locks.acquire(roomID)
	closed := c.registry.Leave(roomID, connectionID)
	c.transport.LeaveGroup(roomID, connectionID)
	c.setRoom(connectionID, "", false)
	if closed {
		c.history.DeleteRoom(roomID)
	} else {
		c.transport.Broadcast(roomID, Message{Event: EventUsersUpdate, Payload: c.registry.ListMembers(roomID)}, "")
		c.transport.Broadcast(roomID, Message{Event: EventUserDisconnected, Payload: connectionID}, "")
	}
	release()

	c.logger.Info("connection left room",
		zap.String("connection_id", connectionID),
		zap.String("room_id", roomID.String()),
		zap.Bool("room_closed", closed))
	c.record(ctx, activity.Entry{RoomID: roomID.String(), ConnectionID: connectionID, Kind: activity.KindLeft})
	if closed {
		c.record(ctx, activity.Entry{RoomID: roomID.String(), Kind: activity.KindRoomClosed})
	}
}

func (c *Coordinator) snapshot(connectionID string) (string, canvas.RoomID, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.connections[connectionID]
	if !ok {
		return "", "", false, false
	}
	return state.color, state.room, state.inRoom, true
}

func (c *Coordinator) currentRoom(connectionID string) (canvas.RoomID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.connections[connectionID]
	if !ok || !state.inRoom {
		return "", false
	}
	return state.room, true
}

func (c *Coordinator) setRoom(connectionID string, roomID canvas.RoomID, inRoom bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.connections[connectionID]
	if !ok {
		return
	}
	state.room = roomID
	state.inRoom = inRoom
}

func (c *Coordinator) dropped(event string, connectionID string) {
	c.logger.Debug("event without current room dropped",
		zap.String("event", event),
		zap.String("connection_id", connectionID))
}

func (c *Coordinator) record(ctx context.Context, entry activity.Entry) {
	if c.activity == nil {
		return
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityTimeout)
	defer cancel()
	if err := c.activity.Record(recordCtx, entry); err != nil {
		c.logger.Warn("activity record failed",
			zap.String("room_id", entry.RoomID),
			zap.String("kind", string(entry.Kind)),
			zap.Error(err))
	}
}
