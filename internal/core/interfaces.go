package core

import (
	"context"

	"github.com/emoedu/live/internal/domain"
)

// Frame is a single encoded signaling message.
type Frame []byte

// ConnID identifies one live transport connection. Assigned at
// transport-open, never reused while the process runs.
type ConnID string

// SignalConnection abstracts the per-connection messaging transport.
// Owned by the adapter; the adapter must Close() it. TrySend must not
// block: a slow peer is the sender's problem, not the room's.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// EmotionSink receives emotion readings for persistence. Writes are
// fire-and-forget from the relay's perspective; failures are logged,
// not retried.
type EmotionSink interface {
	RecordEmotion(ctx context.Context, room domain.RoomID, user domain.UserID, emotion string, confidence float64) error
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	Teacher     bool          `json:"isTeacher"`
}

// RoomInfo is the occupancy summary returned by the rooms API.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
}
