package app

import (
	"testing"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

func containsConn(ids []core.ConnID, id core.ConnID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestRoomsJoinReturnsPriorMembers(t *testing.T) {
	rooms := NewRooms()

	prior := rooms.Join("room1", "a")
	if len(prior) != 0 {
		t.Errorf("first join should see an empty room, got %v", prior)
	}

	prior = rooms.Join("room1", "b")
	if len(prior) != 1 || prior[0] != "a" {
		t.Errorf("second join prior = %v, want [a]", prior)
	}

	prior = rooms.Join("room1", "c")
	if len(prior) != 2 || !containsConn(prior, "a") || !containsConn(prior, "b") {
		t.Errorf("third join prior = %v, want {a,b}", prior)
	}
	if containsConn(prior, "c") {
		t.Error("joiner must not appear in its own prior set")
	}
}

func TestRoomsJoinIdempotent(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")
	rooms.Join("room1", "b")

	// Re-join of an existing member must not duplicate it.
	prior := rooms.Join("room1", "a")
	if len(prior) != 1 || prior[0] != "b" {
		t.Errorf("re-join prior = %v, want [b]", prior)
	}
	if n := len(rooms.Members("room1")); n != 2 {
		t.Errorf("member count %d after re-join, want 2", n)
	}
}

func TestRoomsAtMostOneRoom(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")
	rooms.Join("room2", "a")

	if containsConn(rooms.Members("room1"), "a") {
		t.Error("connection still member of room1 after joining room2")
	}
	if !containsConn(rooms.Members("room2"), "a") {
		t.Error("connection missing from room2")
	}
	if room, ok := rooms.RoomOf("a"); !ok || room != "room2" {
		t.Errorf("RoomOf = (%s,%v), want (room2,true)", room, ok)
	}
}

func TestRoomsLeaveReturnsRemainder(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")
	rooms.Join("room1", "b")
	rooms.Join("room1", "c")

	remaining := rooms.Leave("room1", "b")
	if len(remaining) != 2 || !containsConn(remaining, "a") || !containsConn(remaining, "c") {
		t.Errorf("remaining = %v, want {a,c}", remaining)
	}
}

func TestRoomsLeaveNonMemberIsNoop(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")

	if remaining := rooms.Leave("room1", "ghost"); len(remaining) != 0 {
		t.Errorf("leaving as non-member returned %v, want empty", remaining)
	}
	if remaining := rooms.Leave("nowhere", "a"); len(remaining) != 0 {
		t.Errorf("leaving unknown room returned %v, want empty", remaining)
	}
	if n := len(rooms.Members("room1")); n != 1 {
		t.Errorf("membership disturbed by no-op leave: %d members", n)
	}
}

func TestRoomsMembersExcept(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")
	rooms.Join("room1", "b")
	rooms.Join("room1", "c")

	out := rooms.MembersExcept("room1", "a")
	if len(out) != 2 || containsConn(out, "a") {
		t.Errorf("MembersExcept = %v, want {b,c}", out)
	}
	if out := rooms.MembersExcept("empty-room", "a"); len(out) != 0 {
		t.Errorf("MembersExcept on unknown room = %v, want empty", out)
	}
}

func TestRoomsEmptyRoomEvicted(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")
	rooms.Leave("room1", "a")

	if list := rooms.List(); len(list) != 0 {
		t.Errorf("empty room still listed: %v", list)
	}
}

func TestRoomsList(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("room1", "a")
	rooms.Join("room1", "b")
	rooms.Join("room2", "c")

	counts := make(map[domain.RoomID]int)
	for _, info := range rooms.List() {
		counts[info.ID] = info.MemberCount
	}
	if counts["room1"] != 2 || counts["room2"] != 1 {
		t.Errorf("occupancy %v, want room1=2 room2=1", counts)
	}
}
