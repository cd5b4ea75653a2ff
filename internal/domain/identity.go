// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 64
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrRoomIDEmpty     = errors.New("room id empty")
	ErrDisplayNameLong = errors.New("display name too long")
)

type (
	// UserID is the external identity asserted by the client on join.
	UserID string
	// RoomID is the externally supplied class/session identifier.
	RoomID string
)

// Participant is a user's presence meta inside a room.
// No transport or lifecycle state here.
type Participant struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
	Teacher     bool   `json:"isTeacher"`
}

// NewParticipant validates identity fields to avoid ad-hoc struct
// literals in adapters.
func NewParticipant(user UserID, displayName string, teacher bool) (Participant, error) {
	if user == "" {
		return Participant{}, ErrUserIDEmpty
	}
	if len(user) > MaxUserIDLen {
		return Participant{}, ErrUserIDTooLong
	}
	if len(displayName) > MaxDisplayNameLen {
		return Participant{}, ErrDisplayNameLong
	}
	return Participant{UserID: user, DisplayName: displayName, Teacher: teacher}, nil
}
