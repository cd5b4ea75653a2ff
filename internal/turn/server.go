// Package turn embeds a TURN relay so classrooms behind symmetric NAT
// can still establish the peer media path brokered by the signaling
// relay.
package turn

import (
	"fmt"
	"net"

	"github.com/pion/turn/v4"
	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/config"
)

type Server struct {
	server *turn.Server
	addr   string
	realm  string
}

func NewServer(cfg config.TurnConfig) (*Server, error) {
	publicIP := cfg.PublicIP
	if publicIP == "" {
		ip, err := outboundIP()
		if err != nil {
			return nil, fmt.Errorf("detect public ip: %w", err)
		}
		publicIP = ip
	}

	udpListener, err := net.ListenPacket("udp4", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("create TURN listener: %w", err)
	}

	srv, err := turn.NewServer(turn.ServerConfig{
		Realm: cfg.Realm,
		AuthHandler: func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
			if username == cfg.Username {
				return turn.GenerateAuthKey(cfg.Username, realm, cfg.Password), true
			}
			return nil, false
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: udpListener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: net.ParseIP(publicIP),
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		_ = udpListener.Close()
		return nil, fmt.Errorf("create TURN server: %w", err)
	}

	log.Info().Str("module", "turn").Str("addr", cfg.Address).
		Str("realm", cfg.Realm).Str("public_ip", publicIP).Msg("TURN relay running")
	return &Server{server: srv, addr: cfg.Address, realm: cfg.Realm}, nil
}

func (s *Server) Stop() {
	if s.server != nil {
		_ = s.server.Close()
	}
	log.Info().Str("module", "turn").Str("addr", s.addr).Msg("TURN relay stopped")
}

// outboundIP finds the interface address a default route would use.
// No packet is actually sent.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
