// Package membership tracks which connections belong to which room together with
// their ephemeral presentation data. Every operation is total: unknown rooms and
// connections are treated as empty rather than as errors.
package membership

import (
	"slices"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
	"github.com/samber/lo"
)

// Presence is the presentation data of one participant.
type Presence struct {
	Color  string
	Cursor *canvas.Point
}

// Member is a participant as reported to room members.
type Member struct {
	ID     string        `json:"id"`
	Color  string        `json:"color"`
	Cursor *canvas.Point `json:"cursor"`
}

// Registry maps room identifiers to their current participants.
type Registry struct {
	mu    sync.RWMutex
	rooms map[canvas.RoomID]map[string]Presence
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[canvas.RoomID]map[string]Presence),
	}
}

// Join registers the connection in the room, creating the room when absent.
// Joining again replaces the stored presence in place.
func (r *Registry) Join(roomID canvas.RoomID, connectionID string, presence Presence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]Presence)
		r.rooms[roomID] = members
	}
	members[connectionID] = copyPresence(presence)
}

// Leave removes the connection and deletes the room when it becomes empty.
// It reports whether the room was deleted by this call.
func (r *Registry) Leave(roomID canvas.RoomID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, present := members[connectionID]; !present {
		return false
	}
	delete(members, connectionID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
		return true
	}
	return false
}

// UpdateCursor overwrites the pointer position of a known member.
func (r *Registry) UpdateCursor(roomID canvas.RoomID, connectionID string, position canvas.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	presence, present := members[connectionID]
	if !present {
		return
	}
	cursor := position
	presence.Cursor = &cursor
	members[connectionID] = presence
}

// Member returns a single participant.
func (r *Registry) Member(roomID canvas.RoomID, connectionID string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	presence, ok := r.rooms[roomID][connectionID]
	if !ok {
		return Member{}, false
	}
	return toMember(connectionID, presence), true
}

// ListMembers returns the room participants ordered by connection id.
func (r *Registry) ListMembers(roomID canvas.RoomID) []Member {
	r.mu.RLock()
	members := lo.MapToSlice(r.rooms[roomID], toMember)
	r.mu.RUnlock()
	slices.SortFunc(members, func(left, right Member) int {
		return strings.Compare(left.ID, right.ID)
	})
	return members
}

// Exists reports whether the room currently has at least one participant.
func (r *Registry) Exists(roomID canvas.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func toMember(connectionID string, presence Presence) Member {
	copied := copyPresence(presence)
	return Member{
		ID:     connectionID,
		Color:  copied.Color,
		Cursor: copied.Cursor,
	}
}

func copyPresence(presence Presence) Presence {
	if presence.Cursor == nil {
		return presence
	}
	cursor := *presence.Cursor
	presence.Cursor = &cursor
	return presence
}
