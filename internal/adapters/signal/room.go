package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

func (ctl *SignalWSController) handleJoin(cid core.ConnID, data []byte) {
	type joinPayload struct {
		Type        string `json:"type"`
		RoomID      string `json:"roomId"`
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		IsTeacher   bool   `json:"isTeacher"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad join payload, dropped")
		return
	}
	if p.RoomID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("join without roomId, dropped")
		return
	}
	participant, err := domain.NewParticipant(domain.UserID(p.UserID), p.DisplayName, p.IsTeacher)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("join with bad identity, dropped")
		return
	}

	ctl.Relay.Join(cid, domain.RoomID(p.RoomID), participant.UserID, participant.DisplayName, participant.Teacher)
}

func (ctl *SignalWSController) handleRejoin(cid core.ConnID, data []byte) {
	type rejoinPayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}
	var p rejoinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad rejoin payload, dropped")
		return
	}
	if p.RoomID == "" || p.UserID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("rejoin missing roomId or userId, dropped")
		return
	}

	ctl.Relay.Rejoin(cid, domain.RoomID(p.RoomID), domain.UserID(p.UserID))
}

// handleLeave detaches the connection from its room without closing
// the socket; the payload's roomId/userId are redundant with what the
// relay already knows and are ignored.
func (ctl *SignalWSController) handleLeave(cid core.ConnID) {
	ctl.Relay.Leave(cid)
}
