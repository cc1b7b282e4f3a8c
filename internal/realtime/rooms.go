package realtime

import (
	"sync"

	"revivatech-realtime/internal/auth"
)

// Room name families. Rooms are a derived index, not stored entities.
func UserRoom(userID string) string { return "user:" + userID }

func RoleRoom(role auth.Role) string { return "role:" + string(role) }

func BookingRoom(bookingID string) string { return "booking:" + bookingID }

// Rooms maps room names to member connection sets, with a reverse index
// so a disconnecting connection can be purged from every room under one
// lock.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{}
	joined map[string]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a room, creating the room if needed.
// Idempotent: joining a room twice is a no-op.
func (r *Rooms) Join(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if members == nil {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[connID] = struct{}{}

	joined := r.joined[connID]
	if joined == nil {
		joined = make(map[string]struct{})
		r.joined[connID] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes a connection from a room. Leaving a room never joined,
// or a room that does not exist, is a no-op.
func (r *Rooms) Leave(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, room)
}

func (r *Rooms) leaveLocked(connID, room string) {
	members, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	// Memory hygiene: drop empty rooms.
	if len(members) == 0 {
		delete(r.rooms, room)
	}

	if joined, ok := r.joined[connID]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.joined, connID)
		}
	}
}

// Purge removes a connection from every room it belongs to, atomically
// with respect to concurrent Members calls: a broadcast resolving
// membership either sees the connection everywhere or nowhere.
func (r *Rooms) Purge(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[connID] {
		r.leaveLocked(connID, room)
	}
}

// Members returns a snapshot of a room's member connection ids. An empty
// or unknown room yields an empty slice, not an error.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		members = append(members, id)
	}
	return members
}

// Contains reports whether a connection is a member of a room.
func (r *Rooms) Contains(room, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[room][connID]
	return ok
}

// Count returns the number of non-empty rooms.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
