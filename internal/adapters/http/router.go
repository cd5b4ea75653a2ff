package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/emoedu/live/internal/adapters/signal"
	"github.com/emoedu/live/internal/app"
	"github.com/emoedu/live/internal/config"
	"github.com/emoedu/live/internal/domain"
	"github.com/emoedu/live/internal/storage"
)

// ClientTokenMiddleware gives every browser tab a stable opaque token.
// It is a correlation id for logs, not an authenticated identity.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay, store *storage.EmotionStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("EmoEduSessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := signal.NewSignalWSController(relay, cfg)
	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	// GET /api/rooms — live occupancy across all rooms
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": relay.Rooms.List()})
	})

	// GET /api/rooms/:id — one room's occupancy
	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{
			"id":          id,
			"memberCount": len(relay.Rooms.Members(id)),
		})
	})

	// GET /api/rooms/:id/members — who is in the room right now
	api.GET("/rooms/:id/members", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		c.JSON(http.StatusOK, relay.MembersSnapshot(id))
	})

	// GET /api/rooms/:id/emotions — recent persisted readings
	api.GET("/rooms/:id/emotions", func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "emotion history disabled"})
			return
		}
		id := domain.RoomID(c.Param("id"))
		readings, err := store.RecentByRoom(c.Request.Context(), id, 200)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Str("room", string(id)).Msg("emotion history query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"emotionData": readings})
	})

	// GET /api/webrtc/config — ICE servers for the browser peer connections
	api.GET("/webrtc/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, iceConfig(cfg))
	})

	return r
}
