package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

// Rooms maps a room id to the set of connections currently joined to
// it. Rooms come into being on first join and are evicted once empty;
// "room doesn't exist" and "empty room" are the same observable state.
// All operations are total: there is nothing to fail.
type Rooms struct {
	mu      sync.RWMutex
	members map[domain.RoomID]map[core.ConnID]struct{}
	byConn  map[core.ConnID]domain.RoomID
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[domain.RoomID]map[core.ConnID]struct{}),
		byConn:  make(map[core.ConnID]domain.RoomID),
	}
}

// Join adds the connection to the room and returns the membership as it
// was before the add, so the caller can notify the existing members.
// A connection sits in at most one room: joining while a member of a
// different room detaches it from that room first.
func (r *Rooms) Join(room domain.RoomID, id core.ConnID) []core.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byConn[id]; ok && prev != room {
		r.detachLocked(prev, id)
	}
	set, ok := r.members[room]
	if !ok {
		set = make(map[core.ConnID]struct{})
		r.members[room] = set
	}
	prior := make([]core.ConnID, 0, len(set))
	for m := range set {
		if m != id {
			prior = append(prior, m)
		}
	}
	set[id] = struct{}{}
	r.byConn[id] = room
	log.Debug().Str("module", "app.rooms").Str("room", string(room)).
		Str("conn", string(id)).Int("others", len(prior)).Msg("joined room")
	return prior
}

// Leave removes the connection and returns the remaining membership.
// If the connection was not a member the remainder is empty and nothing
// changes.
func (r *Rooms) Leave(room domain.RoomID, id core.ConnID) []core.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[room]
	if !ok {
		return nil
	}
	if _, member := set[id]; !member {
		return nil
	}
	r.detachLocked(room, id)
	set = r.members[room]
	remaining := make([]core.ConnID, 0, len(set))
	for m := range set {
		remaining = append(remaining, m)
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(room)).
		Str("conn", string(id)).Int("remaining", len(remaining)).Msg("left room")
	return remaining
}

// MembersExcept returns the room's membership minus the given
// connection, for broadcast fan-out.
func (r *Rooms) MembersExcept(room domain.RoomID, id core.ConnID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.members[room]
	out := make([]core.ConnID, 0, len(set))
	for m := range set {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}

// Members returns the room's full membership.
func (r *Rooms) Members(room domain.RoomID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.members[room]
	out := make([]core.ConnID, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out
}

// RoomOf reports which room the connection is joined to, if any.
func (r *Rooms) RoomOf(id core.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.byConn[id]
	return room, ok
}

// List summarises occupancy across all live rooms.
func (r *Rooms) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.members))
	for room, set := range r.members {
		out = append(out, core.RoomInfo{ID: room, MemberCount: len(set)})
	}
	return out
}

func (r *Rooms) detachLocked(room domain.RoomID, id core.ConnID) {
	if set, ok := r.members[room]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	delete(r.byConn, id)
}
