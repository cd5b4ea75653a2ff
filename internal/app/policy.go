package app

import (
	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

type DeliveryAction int

const (
	// DropFrame skips the slow peer and carries on with the fan-out.
	DropFrame DeliveryAction = iota
	// KickMember removes the slow peer from its room entirely.
	KickMember
)

// Policy decides what happens when a transport send fails. The failure
// itself never aborts a broadcast loop; the policy only shapes what
// happens to the failing peer afterwards.
type Policy interface {
	OnSendFailure(room domain.RoomID, id core.ConnID, err error) DeliveryAction
}

// DropPolicy drops the frame for the slow peer and nothing else.
// Signaling is best-effort; the client's reconnect logic is the
// recovery mechanism.
type DropPolicy struct{}

func (DropPolicy) OnSendFailure(domain.RoomID, core.ConnID, error) DeliveryAction {
	return DropFrame
}

// KickPolicy evicts peers whose transport cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnSendFailure(domain.RoomID, core.ConnID, error) DeliveryAction {
	return KickMember
}
