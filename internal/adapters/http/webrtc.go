package http

import (
	"github.com/pion/webrtc/v4"

	"github.com/emoedu/live/internal/config"
)

// iceConfig assembles the ICE server list handed to browsers. STUN
// urls come straight from config; the embedded TURN relay is appended
// with its static credentials when enabled.
func iceConfig(cfg *config.Config) webrtc.Configuration {
	servers := []webrtc.ICEServer{
		{URLs: cfg.StunURLs},
	}
	if cfg.Turn.Enabled {
		servers = append(servers, webrtc.ICEServer{
			URLs:       []string{"turn:" + cfg.Turn.Address},
			Username:   cfg.Turn.Username,
			Credential: cfg.Turn.Password,
		})
	}
	return webrtc.Configuration{ICEServers: servers}
}
