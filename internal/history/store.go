// Package history keeps the per-room drawing timeline with global undo and redo.
package history

import (
	"sync"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
)

// DefaultRedoLimit bounds the redo stack when no explicit limit is configured.
const DefaultRedoLimit = 50

// StoreConfig describes optional tuning for the store.
type StoreConfig struct {
	RedoLimit int
}

// Store holds one timeline per room. Undo and redo act on the room timeline as
// a whole, never on a per-author subset.
type Store struct {
	mu        sync.RWMutex
	rooms     map[canvas.RoomID]*timeline
	redoLimit int
}

type timeline struct {
	mu       sync.Mutex
	segments []canvas.Segment
	redo     [][]canvas.Segment
}

// NewStore constructs an empty store.
func NewStore(cfg StoreConfig) *Store {
	redoLimit := cfg.RedoLimit
	if redoLimit <= 0 {
		redoLimit = DefaultRedoLimit
	}
	return &Store{
		rooms:     make(map[canvas.RoomID]*timeline),
		redoLimit: redoLimit,
	}
}

// History returns a copy of the room's committed segments in commit order.
func (s *Store) History(roomID canvas.RoomID) []canvas.Segment {
	room, ok := s.lookup(roomID)
	if !ok {
		return []canvas.Segment{}
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return cloneSegments(room.segments)
}

// Append commits a segment to the tail of the timeline and discards redo state.
func (s *Store) Append(roomID canvas.RoomID, segment canvas.Segment) {
	room := s.getOrCreate(roomID)
	room.mu.Lock()
	defer room.mu.Unlock()
	room.segments = append(room.segments, segment)
	room.redo = nil
}

// UndoLast removes every segment belonging to the gesture of the tail segment,
// wherever those segments sit in the timeline, and queues them for redo.
func (s *Store) UndoLast(roomID canvas.RoomID) (canvas.GestureID, bool) {
	room, ok := s.lookup(roomID)
	if !ok {
		return "", false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.segments) == 0 {
		return "", false
	}

	target := room.segments[len(room.segments)-1].GestureID
	kept := make([]canvas.Segment, 0, len(room.segments))
	removed := make([]canvas.Segment, 0, 1)
	for _, segment := range room.segments {
		if segment.GestureID == target {
			removed = append(removed, segment)
			continue
		}
		kept = append(kept, segment)
	}
	room.segments = kept

	room.redo = append(room.redo, removed)
	if overflow := len(room.redo) - s.redoLimit; overflow > 0 {
		room.redo = append([][]canvas.Segment(nil), room.redo[overflow:]...)
	}
	return target, true
}

// RedoLast re-appends the most recently undone gesture and returns its segments.
func (s *Store) RedoLast(roomID canvas.RoomID) ([]canvas.Segment, bool) {
	room, ok := s.lookup(roomID)
	if !ok {
		return nil, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.redo) == 0 {
		return nil, false
	}
	last := len(room.redo) - 1
	restored := room.redo[last]
	room.redo[last] = nil
	room.redo = room.redo[:last]
	room.segments = append(room.segments, restored...)
	return cloneSegments(restored), true
}

// Clear empties the timeline and the redo stack of the room.
func (s *Store) Clear(roomID canvas.RoomID) {
	room, ok := s.lookup(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	room.segments = nil
	room.redo = nil
}

// DeleteRoom drops all state held for the room.
func (s *Store) DeleteRoom(roomID canvas.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// RedoDepth reports how many undone gestures are queued for the room.
func (s *Store) RedoDepth(roomID canvas.RoomID) int {
	room, ok := s.lookup(roomID)
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return len(room.redo)
}

func (s *Store) lookup(roomID canvas.RoomID) (*timeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

func (s *Store) getOrCreate(roomID canvas.RoomID) *timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		room = &timeline{}
		s.rooms[roomID] = room
	}
	return room
}

func cloneSegments(segments []canvas.Segment) []canvas.Segment {
	cloned := make([]canvas.Segment, len(segments))
	copy(cloned, segments)
	return cloned
}
