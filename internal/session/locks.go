package session

import (
	"sync"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/canvas"
)

// roomLocks hands out one mutex per live room. Entries are reference counted
// and removed once no caller holds or waits on them.
type roomLocks struct {
	mu      sync.Mutex
	entries map[canvas.RoomID]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{entries: make(map[canvas.RoomID]*roomLock)}
}

func (l *roomLocks) acquire(roomID canvas.RoomID) func() {
	l.mu.Lock()
	entry, ok := l.entries[roomID]
	if !ok {
		entry = &roomLock{}
		l.entries[roomID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
