package app

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

var ErrUnknownConnection = errors.New("unknown connection")

// Connection is the lightweight identity attached to one live transport
// session. UserID/RoomID are empty until the first join binds them.
type Connection struct {
	ID          core.ConnID
	UserID      domain.UserID
	RoomID      domain.RoomID
	DisplayName string
	Teacher     bool
}

type regEntry struct {
	conn   Connection
	signal core.SignalConnection
}

// Registry exclusively owns Connection records, keyed by connection id.
// A (room, user) index is kept so targeted messages resolve the current
// connection for an identity, i.e. it reflects rejoin/reconnect.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.ConnID]*regEntry
	byUser  map[domain.RoomID]map[domain.UserID]core.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[core.ConnID]*regEntry),
		byUser:  make(map[domain.RoomID]map[domain.UserID]core.ConnID),
	}
}

// Register allocates a record for a freshly opened transport connection.
// Never fails.
func (r *Registry) Register(sig core.SignalConnection) core.ConnID {
	id := core.ConnID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &regEntry{conn: Connection{ID: id}, signal: sig}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection registered")
	return id
}

// SetIdentity binds a (room, user) identity to the connection. The last
// bind for an identity wins, so a reconnecting user's fresh connection
// shadows the stale one.
func (r *Registry) SetIdentity(id core.ConnID, user domain.UserID, room domain.RoomID, displayName string, teacher bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrUnknownConnection
	}
	r.dropIndexLocked(e.conn)
	e.conn.UserID = user
	e.conn.RoomID = room
	e.conn.DisplayName = displayName
	e.conn.Teacher = teacher
	if room != "" && user != "" {
		idx, ok := r.byUser[room]
		if !ok {
			idx = make(map[domain.UserID]core.ConnID)
			r.byUser[room] = idx
		}
		idx[user] = id
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("user", string(user)).Str("room", string(room)).Msg("identity bound")
	return nil
}

// ClearIdentity detaches the connection from its room/user binding but
// keeps the connection itself registered (explicit leave).
func (r *Registry) ClearIdentity(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	r.dropIndexLocked(e.conn)
	e.conn.UserID = ""
	e.conn.RoomID = ""
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("identity cleared")
}

// Lookup returns a snapshot of the connection record.
func (r *Registry) Lookup(id core.ConnID) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.conn, true
	}
	return Connection{}, false
}

// Signal returns the transport endpoint for fan-out.
func (r *Registry) Signal(id core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.signal, true
	}
	return nil, false
}

// FindByUser resolves the current connection for a (room, user) pair.
// Targeted messages address logical identities, not transport ids.
func (r *Registry) FindByUser(room domain.RoomID, user domain.UserID) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx, ok := r.byUser[room]; ok {
		if id, ok := idx[user]; ok {
			return id, true
		}
	}
	return "", false
}

// Remove is idempotent; removing an unknown connection is a no-op.
func (r *Registry) Remove(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return
	}
	r.dropIndexLocked(e.conn)
	delete(r.entries, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection removed")
}

// Snapshot builds read-only member views for the given connections.
func (r *Registry) Snapshot(ids []core.ConnID) []core.MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.MemberDTO, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			out = append(out, core.MemberDTO{
				UserID:      e.conn.UserID,
				DisplayName: e.conn.DisplayName,
				Teacher:     e.conn.Teacher,
			})
		}
	}
	return out
}

// dropIndexLocked removes the (room, user) index entry iff it still
// points at this connection. A newer bind by a reconnect must not be
// clobbered by the old connection's teardown.
func (r *Registry) dropIndexLocked(c Connection) {
	if c.RoomID == "" || c.UserID == "" {
		return
	}
	idx, ok := r.byUser[c.RoomID]
	if !ok {
		return
	}
	if idx[c.UserID] == c.ID {
		delete(idx, c.UserID)
		if len(idx) == 0 {
			delete(r.byUser, c.RoomID)
		}
	}
}
