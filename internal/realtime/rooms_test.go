package realtime

import (
	"testing"

	"revivatech-realtime/internal/auth"
)

func TestRoomNames(t *testing.T) {
	if got := UserRoom("42"); got != "user:42" {
		t.Errorf("UserRoom = %q", got)
	}
	if got := RoleRoom(auth.RoleAdmin); got != "role:admin" {
		t.Errorf("RoleRoom = %q", got)
	}
	if got := BookingRoom("B1"); got != "booking:B1" {
		t.Errorf("BookingRoom = %q", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRooms()

	r.Join("c1", "booking:B1")
	r.Join("c1", "booking:B1")

	if got := len(r.Members("booking:B1")); got != 1 {
		t.Errorf("expected 1 member after double join, got %d", got)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := NewRooms()
	r.Join("c1", "booking:B1")

	// Leaving a room never joined, or an unknown room, is a no-op.
	r.Leave("c2", "booking:B1")
	r.Leave("c1", "booking:nope")
	if got := len(r.Members("booking:B1")); got != 1 {
		t.Fatalf("no-op leaves must not change membership, got %d members", got)
	}

	r.Leave("c1", "booking:B1")
	r.Leave("c1", "booking:B1")
	if got := len(r.Members("booking:B1")); got != 0 {
		t.Errorf("expected empty room after leave, got %d members", got)
	}
}

func TestMembersOfEmptyRoom(t *testing.T) {
	r := NewRooms()

	members := r.Members("booking:empty")
	if members == nil || len(members) != 0 {
		t.Errorf("expected empty slice for unknown room, got %v", members)
	}
}

func TestPurgeClearsEveryRoom(t *testing.T) {
	r := NewRooms()
	r.Join("c1", "user:42")
	r.Join("c1", "role:customer")
	r.Join("c1", "booking:B1")
	r.Join("c2", "booking:B1")

	r.Purge("c1")

	for _, room := range []string{"user:42", "role:customer", "booking:B1"} {
		if r.Contains(room, "c1") {
			t.Errorf("purged connection still in %s", room)
		}
	}
	if !r.Contains("booking:B1", "c2") {
		t.Error("purge removed an unrelated connection")
	}

	// Purging an unknown connection is a no-op.
	r.Purge("c1")
	r.Purge("never-joined")
}

func TestEmptyRoomsAreDropped(t *testing.T) {
	r := NewRooms()
	r.Join("c1", "booking:B1")
	r.Join("c2", "user:7")

	if got := r.Count(); got != 2 {
		t.Fatalf("expected 2 rooms, got %d", got)
	}

	r.Leave("c1", "booking:B1")
	if got := r.Count(); got != 1 {
		t.Errorf("expected empty room to be removed, count = %d", got)
	}
}
