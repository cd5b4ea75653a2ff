package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

// Relay is the signaling hub: it dispatches inbound messages from one
// connection to the right subset of its room, via the Registry and the
// Rooms directory.
//
// A single mutex serialises every mutation together with its fan-out
// lookup, which is what gives each room a total order over
// user-joined/user-left/emotion-update notifications. Actual socket
// writes are non-blocking TrySends handed to per-connection write
// pumps, so no I/O happens under the lock and a slow peer cannot stall
// delivery to the others.
type Relay struct {
	mu       sync.Mutex
	Registry *Registry
	Rooms    *Rooms
	Policy   Policy
	Sink     core.EmotionSink
}

func NewRelay(reg *Registry, rooms *Rooms, policy Policy, sink core.EmotionSink) *Relay {
	return &Relay{Registry: reg, Rooms: rooms, Policy: policy, Sink: sink}
}

// Bind registers a freshly opened transport connection. The connection
// belongs to no room until its first join message.
func (r *Relay) Bind(sig core.SignalConnection) core.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Registry.Register(sig)
}

// Join binds identity to the connection, adds it to the room and
// notifies the members that were already there. A connection already
// sitting in a different room is implicitly removed from it first, and
// that room's peers are told it left.
func (r *Relay) Join(id core.ConnID, room domain.RoomID, user domain.UserID, displayName string, teacher bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.Registry.Lookup(id); ok && cur.RoomID != "" && cur.RoomID != room {
		log.Info().Str("module", "app.relay").Str("conn", string(id)).
			Str("from_room", string(cur.RoomID)).Str("to_room", string(room)).Msg("implicit leave on room switch")
		r.leaveLocked(cur)
	}

	if err := r.Registry.SetIdentity(id, user, room, displayName, teacher); err != nil {
		// Race between close and an in-flight join; nothing to do.
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("join for unknown connection")
		return
	}

	prior := r.Rooms.Join(room, id)
	r.broadcastLocked(room, prior, core.PresenceEvent{Type: core.KindUserJoined, UserID: user})
	log.Info().Str("module", "app.relay").Str("room", string(room)).
		Str("user", string(user)).Bool("teacher", teacher).Int("notified", len(prior)).Msg("user joined")
}

// Rejoin re-attaches a reconnecting user to its room. The add is
// idempotent; the rest of the room is told the user is back so peers
// can restart negotiation.
func (r *Relay) Rejoin(id core.ConnID, room domain.RoomID, user domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("rejoin for unknown connection")
		return
	}
	if cur.RoomID != "" && cur.RoomID != room {
		log.Info().Str("module", "app.relay").Str("conn", string(id)).
			Str("from_room", string(cur.RoomID)).Str("to_room", string(room)).Msg("implicit leave on room switch")
		r.leaveLocked(cur)
	}
	// Keep whatever profile meta the connection already carries; the
	// rejoin payload only re-asserts room and user.
	if err := r.Registry.SetIdentity(id, user, room, cur.DisplayName, cur.Teacher); err != nil {
		return
	}
	r.Rooms.Join(room, id)

	others := r.Rooms.MembersExcept(room, id)
	r.broadcastLocked(room, others, core.PresenceEvent{Type: core.KindUserRejoined, UserID: user})
	log.Info().Str("module", "app.relay").Str("room", string(room)).
		Str("user", string(user)).Msg("user rejoined")
}

// Forward relays an offer, answer or ICE candidate to the single
// connection currently bound to the target identity. The payload blob
// passes through untouched, tagged with the sender's user id. An
// unresolvable target is dropped silently: the peer may have
// legitimately left mid-negotiation.
func (r *Relay) Forward(id core.ConnID, kind string, target domain.UserID, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.Registry.Lookup(id)
	if !ok || c.RoomID == "" {
		log.Debug().Str("module", "app.relay").Str("conn", string(id)).
			Str("kind", kind).Msg("forward from connection with no room, dropped")
		return
	}
	if kind == core.KindOffer && !domain.ShouldInitiate(c.UserID, target) {
		// Legal during ICE restarts and glare recovery, worth seeing in logs.
		log.Debug().Str("module", "app.relay").Str("from", string(c.UserID)).
			Str("to", string(target)).Msg("offer from non-initiating side")
	}
	dst, ok := r.Registry.FindByUser(c.RoomID, target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("room", string(c.RoomID)).
			Str("target", string(target)).Str("kind", kind).Msg("target not resolvable, dropped")
		return
	}
	r.sendLocked(c.RoomID, dst, core.NewForwardEvent(kind, c.UserID, payload))
}

// Emotion broadcasts an emotion reading to every other member of the
// room and hands it to the sink. Identity from the payload takes
// precedence over the connection's stored identity, tolerating late
// binding; with neither, the reading is dropped.
func (r *Relay) Emotion(id core.ConnID, room domain.RoomID, user domain.UserID, emotion string, confidence float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, _ := r.Registry.Lookup(id)
	if user == "" {
		user = c.UserID
	}
	if room == "" {
		room = c.RoomID
	}
	if room == "" {
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("emotion event with no room, dropped")
		return
	}

	others := r.Rooms.MembersExcept(room, id)
	r.broadcastLocked(room, others, core.EmotionUpdate{
		Type:       core.KindEmotionUpdate,
		UserID:     user,
		Emotion:    emotion,
		Confidence: confidence,
	})

	if r.Sink != nil {
		go func() {
			if err := r.Sink.RecordEmotion(context.Background(), room, user, emotion, confidence); err != nil {
				log.Error().Err(err).Str("module", "app.relay").
					Str("room", string(room)).Str("user", string(user)).Msg("record emotion failed")
			}
		}()
	}
}

// Leave removes the connection from its room, notifies the remaining
// members and clears the connection's identity. A connection that is
// not in a room is a no-op, so a second leave never double-notifies.
func (r *Relay) Leave(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.Registry.Lookup(id)
	if !ok || c.RoomID == "" {
		return
	}
	r.leaveLocked(c)
	r.Registry.ClearIdentity(id)
}

// Disconnect is the transport-close path: membership teardown plus
// removal of the connection record itself. It runs after an explicit
// leave without double-notifying, because leave already cleared the
// room binding.
func (r *Relay) Disconnect(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.Registry.Lookup(id)
	if !ok {
		return
	}
	if c.RoomID != "" {
		r.leaveLocked(c)
	}
	r.Registry.Remove(id)
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Msg("disconnected")
}

// MembersSnapshot exposes a room's current occupants for the REST API.
func (r *Relay) MembersSnapshot(room domain.RoomID) []core.MemberDTO {
	return r.Registry.Snapshot(r.Rooms.Members(room))
}

// leaveLocked removes c from its room and tells the remaining members.
// It does not touch c's registry record.
func (r *Relay) leaveLocked(c Connection) {
	remaining := r.Rooms.Leave(c.RoomID, c.ID)
	r.broadcastLocked(c.RoomID, remaining, core.PresenceEvent{Type: core.KindUserLeft, UserID: c.UserID})
	log.Info().Str("module", "app.relay").Str("room", string(c.RoomID)).
		Str("user", string(c.UserID)).Int("notified", len(remaining)).Msg("user left")
}

// broadcastLocked encodes once and fans out. A failed send to one
// target is handed to the policy and never aborts the loop.
func (r *Relay) broadcastLocked(room domain.RoomID, ids []core.ConnID, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode broadcast event")
		return
	}
	var failed []core.ConnID
	for _, id := range ids {
		sig, ok := r.Registry.Signal(id)
		if !ok {
			continue
		}
		if err := sig.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("send failed")
			if r.Policy != nil && r.Policy.OnSendFailure(room, id, err) == KickMember {
				failed = append(failed, id)
			}
		}
	}
	for _, id := range failed {
		r.kickLocked(id)
	}
}

func (r *Relay) sendLocked(room domain.RoomID, id core.ConnID, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("encode targeted event")
		return
	}
	sig, ok := r.Registry.Signal(id)
	if !ok {
		return
	}
	if err := sig.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(id)).Msg("targeted send failed")
		if r.Policy != nil && r.Policy.OnSendFailure(room, id, err) == KickMember {
			r.kickLocked(id)
		}
	}
}

// kickLocked evicts a peer whose transport gave up. Bounded recursion:
// every kick shrinks the registry by one connection.
func (r *Relay) kickLocked(id core.ConnID) {
	c, ok := r.Registry.Lookup(id)
	if !ok {
		return
	}
	log.Info().Str("module", "app.relay").Str("conn", string(id)).
		Str("user", string(c.UserID)).Msg("kicking unresponsive peer")
	if c.RoomID != "" {
		r.leaveLocked(c)
	}
	sig, ok := r.Registry.Signal(id)
	r.Registry.Remove(id)
	if ok {
		sig.Close()
	}
}
