package core

import (
	"encoding/json"

	"github.com/emoedu/live/internal/domain"
)

// Inbound message kinds accepted on the signaling channel.
const (
	KindJoin         = "join"
	KindRejoin       = "rejoin"
	KindOffer        = "offer"
	KindAnswer       = "answer"
	KindICECandidate = "ice-candidate"
	KindEmotion      = "emotion-event"
	KindLeave        = "leave"
	KindPing         = "ping"
)

// Outbound event kinds.
const (
	KindUserJoined    = "user-joined"
	KindUserRejoined  = "user-rejoined"
	KindUserLeft      = "user-left"
	KindEmotionUpdate = "emotion-update"
)

// PresenceEvent announces membership changes to the rest of a room.
type PresenceEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

// ForwardEvent carries a targeted negotiation payload to a single peer,
// tagged with the sender's identity. Exactly one of the payload fields
// is set, matching Type; the blobs pass through unmodified.
type ForwardEvent struct {
	Type         string          `json:"type"`
	SenderUserID domain.UserID   `json:"senderUserId"`
	Offer        json.RawMessage `json:"offer,omitempty"`
	Answer       json.RawMessage `json:"answer,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// NewForwardEvent places payload into the field named by kind.
func NewForwardEvent(kind string, sender domain.UserID, payload json.RawMessage) ForwardEvent {
	ev := ForwardEvent{Type: kind, SenderUserID: sender}
	switch kind {
	case KindOffer:
		ev.Offer = payload
	case KindAnswer:
		ev.Answer = payload
	case KindICECandidate:
		ev.Candidate = payload
	}
	return ev
}

// EmotionUpdate is the room-broadcast form of an emotion reading.
// Emotion and confidence are opaque to the relay.
type EmotionUpdate struct {
	Type       string        `json:"type"`
	UserID     domain.UserID `json:"userId"`
	Emotion    string        `json:"emotion"`
	Confidence float64       `json:"confidence"`
}
