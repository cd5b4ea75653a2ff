package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/core"
	"github.com/emoedu/live/internal/domain"
)

// handleEmotion accepts one classifier reading. The emotion label and
// confidence are opaque to the server; identity fields are optional
// and, when present, take precedence over the connection's stored
// identity.
func (ctl *SignalWSController) handleEmotion(cid core.ConnID, data []byte) {
	type emotionPayload struct {
		Type       string   `json:"type"`
		UserID     string   `json:"userId"`
		RoomID     string   `json:"roomId"`
		Emotion    string   `json:"emotion"`
		Confidence *float64 `json:"confidence"`
	}
	var p emotionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("bad emotion payload, dropped")
		return
	}
	if p.Emotion == "" || p.Confidence == nil {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("emotion payload missing fields, dropped")
		return
	}
	if !ctl.limiter.Allow(cid) {
		log.Warn().Str("module", "signal").Str("conn", string(cid)).Msg("emotion rate limit exceeded, dropped")
		return
	}

	ctl.Relay.Emotion(cid, domain.RoomID(p.RoomID), domain.UserID(p.UserID), p.Emotion, *p.Confidence)
}
