package control

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/app/chat"
	"github.com/lingomeet/lingomeet/internal/app/meeting"
	"github.com/lingomeet/lingomeet/internal/domain"
)

// TokenSink receives the backend bearer token handed over on enter.
type TokenSink interface {
	SetToken(token string)
}

// Controller maps the HTTP control surface onto the meeting
// orchestrator. Chat sends are rate-limited per client token.
type Controller struct {
	Orch    *meeting.Orchestrator
	Limiter *RateLimiter
	Tokens  TokenSink
}

func NewController(orch *meeting.Orchestrator, limiter *RateLimiter) *Controller {
	return &Controller{Orch: orch, Limiter: limiter}
}

type enterRequest struct {
	RoomID string `json:"room_id" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

func (ctl *Controller) handleEnter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and token are required"})
		return
	}
	if ctl.Tokens != nil {
		ctl.Tokens.SetToken(req.Token)
	}
	if err := ctl.Orch.Enter(c.Request.Context(), domain.RoomID(req.RoomID), req.Token); err != nil {
		switch {
		case errors.Is(err, meeting.ErrAlreadyInMeeting):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, meeting.ErrSessionExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("module", "adapters.control").Msg("enter failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, ctl.Orch.Status())
}

func (ctl *Controller) handleLeave(c *gin.Context) {
	ctl.Orch.Leave(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (ctl *Controller) handleEndForAll(c *gin.Context) {
	if err := ctl.Orch.EndForAll(c.Request.Context()); err != nil {
		switch {
		case errors.Is(err, meeting.ErrNotInMeeting):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, meeting.ErrNotHost):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (ctl *Controller) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Orch.Status())
}

// toggle wraps a boolean flip into a uniform {"enabled": bool} reply.
func (ctl *Controller) toggle(flip func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"enabled": flip()})
	}
}

type pointerRequest struct {
	Y        int  `json:"y"`
	OverChat bool `json:"over_chat"`
}

func (ctl *Controller) handlePointer(c *gin.Context) {
	var req pointerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pointer payload"})
		return
	}
	ctl.Orch.PointerActivity(req.Y, req.OverChat)
	c.JSON(http.StatusOK, gin.H{"controls_visible": ctl.Orch.ControlsVisible()})
}

type viewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height" binding:"required"`
}

func (ctl *Controller) handleViewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid viewport payload"})
		return
	}
	ctl.Orch.SetViewport(req.Width, req.Height)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ctl *Controller) handleChatMessages(c *gin.Context) {
	if ctl.Orch.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not available"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": ctl.Orch.Chat.Messages(),
		"compose":  ctl.Orch.Chat.Compose(),
	})
}

type chatSendRequest struct {
	Content string `json:"content" binding:"required"`
}

func (ctl *Controller) handleChatSend(c *gin.Context) {
	if ctl.Orch.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not available"})
		return
	}

	clientToken := c.GetString("client_token")
	if ctl.Limiter != nil && !ctl.Limiter.Allow(clientToken) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages, slow down"})
		return
	}

	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if err := ctl.Orch.Chat.Send(c.Request.Context(), req.Content); err != nil {
		switch {
		case errors.Is(err, chat.ErrNotBound), errors.Is(err, chat.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			// Optimistic append already rolled back; the compose box
			// holds the original text again.
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "compose": ctl.Orch.Chat.Compose()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": ctl.Orch.Chat.Messages()})
}

type chatTranslateRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

func (ctl *Controller) handleChatTranslate(c *gin.Context) {
	if ctl.Orch.Chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat is not available"})
		return
	}
	var req chatTranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_id is required"})
		return
	}
	if err := ctl.Orch.Chat.Translate(c.Request.Context(), req.MessageID); err != nil {
		if errors.Is(err, chat.ErrUnknownMessage) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": ctl.Orch.Chat.Messages()})
}

type languagesRequest struct {
	Speaks      []string `json:"speaks"`
	Understands []string `json:"understands"`
}

func (ctl *Controller) handleSaveLanguages(c *gin.Context) {
	if ctl.Orch.Languages == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "language settings are not available"})
		return
	}
	var req languagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid language payload"})
		return
	}
	if err := ctl.Orch.Languages.Save(c.Request.Context(), req.Speaks, req.Understands); err != nil {
		if errors.Is(err, domain.ErrEmptyLanguages) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preference": ctl.Orch.Languages.Preference()})
}

func (ctl *Controller) handleDismissBanner(c *gin.Context) {
	if !ctl.Orch.DismissBanner(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such banner"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}
