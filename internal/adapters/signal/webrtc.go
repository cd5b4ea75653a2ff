package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

// handleForward parses the targeted kinds (offer, answer,
// ice-candidate). The session-description and candidate bodies are
// opaque: only presence is checked, nothing inside them is read.
func (ctl *SignalWSController) handleForward(cid core.ConnID, kind string, data []byte) {
	type forwardPayload struct {
		Type         string          `json:"type"`
		TargetUserID string          `json:"targetUserId"`
		Offer        json.RawMessage `json:"offer"`
		Answer       json.RawMessage `json:"answer"`
		Candidate    json.RawMessage `json:"candidate"`
	}
	var p forwardPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).
			Str("kind", kind).Msg("bad signaling payload, dropped")
		return
	}
	if p.TargetUserID == "" {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).
			Str("kind", kind).Msg("signaling payload without target, dropped")
		return
	}

	var body json.RawMessage
	switch kind {
	case core.KindOffer:
		body = p.Offer
	case core.KindAnswer:
		body = p.Answer
	case core.KindICECandidate:
		body = p.Candidate
	}
	if len(body) == 0 {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).
			Str("kind", kind).Msg("signaling payload without body, dropped")
		return
	}

	ctl.Relay.Forward(cid, kind, domain.UserID(p.TargetUserID), body)
}
