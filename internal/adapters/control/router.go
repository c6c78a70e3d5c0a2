// Package control exposes the meeting orchestration over a local HTTP
// surface: the agent's stand-in for the meeting view's UI events.
package control

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, ctrl *Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LingomeetSession", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.control").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.POST("/session/enter", ctrl.handleEnter)
	api.POST("/session/leave", ctrl.handleLeave)
	api.POST("/session/end", ctrl.handleEndForAll)
	api.GET("/status", ctrl.handleStatus)

	api.POST("/controls/mute", ctrl.toggle(func() bool { return ctrl.Orch.ToggleMute() }))
	api.POST("/controls/video", ctrl.toggle(func() bool { return ctrl.Orch.ToggleVideo() }))
	api.POST("/controls/screen-share", ctrl.toggle(func() bool { return ctrl.Orch.ToggleScreenShare() }))
	api.POST("/controls/fullscreen", ctrl.toggle(func() bool { return ctrl.Orch.ToggleFullscreen() }))
	api.POST("/controls/chat", ctrl.toggle(func() bool { return ctrl.Orch.ToggleChatVisible() }))
	api.POST("/controls/captions", ctrl.toggle(func() bool { return ctrl.Orch.ToggleCaptions() }))
	api.POST("/controls/pointer", ctrl.handlePointer)
	api.POST("/controls/viewport", ctrl.handleViewport)

	api.GET("/chat/messages", ctrl.handleChatMessages)
	api.POST("/chat/send", ctrl.handleChatSend)
	api.POST("/chat/translate", ctrl.handleChatTranslate)

	api.PUT("/languages", ctrl.handleSaveLanguages)

	api.POST("/banners/:id/dismiss", ctrl.handleDismissBanner)

	return r
}
