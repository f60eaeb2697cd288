package activity

import (
	"errors"
	"fmt"
)

// Kind enumerates the room events kept in the journal.
type Kind string

const (
	// KindJoined records a connection entering a room.
	KindJoined Kind = "joined"
	// KindLeft records a connection leaving a room, explicitly or by disconnect.
	KindLeft Kind = "left"
	// KindUndo records a global undo and the removed gesture.
	KindUndo Kind = "undo"
	// KindRedo records a global redo and the restored gesture.
	KindRedo Kind = "redo"
	// KindCleared records a canvas clear.
	KindCleared Kind = "cleared"
	// KindRoomClosed records a room being discarded after its last member left.
	KindRoomClosed Kind = "room_closed"
)

// ErrInvalidKind indicates that an entry carries an unknown kind.
var ErrInvalidKind = errors.New("activity: invalid kind")

// ParseKind validates a raw kind string.
func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindJoined, KindLeft, KindUndo, KindRedo, KindCleared, KindRoomClosed:
		return Kind(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, value)
	}
}

// Entry is the input to Service.Record.
type Entry struct {
	RoomID       string
	ConnectionID string
	Kind         Kind
	Detail       string
}

// RoomEvent is the stored journal row.
type RoomEvent struct {
	EventID           string `gorm:"column:event_id;primaryKey;size:64;not null" json:"eventId"`
	RoomID            string `gorm:"column:room_id;size:190;not null;index:idx_room_events_room_time,priority:1" json:"roomId"`
	ConnectionID      string `gorm:"column:connection_id;size:64;not null;default:''" json:"connectionId"`
	Kind              Kind   `gorm:"column:kind;size:32;not null" json:"kind"`
	Detail            string `gorm:"column:detail;size:190;not null;default:''" json:"detail"`
	RecordedAtSeconds int64  `gorm:"column:recorded_at_s;not null;index:idx_room_events_room_time,priority:2" json:"recordedAtS"`
}

// TableName provides the explicit table binding for GORM.
func (RoomEvent) TableName() string {
	return "room_events"
}
