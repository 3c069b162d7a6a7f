package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mediconnect/realtime/internal/app"
	"github.com/mediconnect/realtime/internal/auth"
	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
	"github.com/mediconnect/realtime/internal/store"
)

const identityKey = "identity"

type Handlers struct {
	Tokens   *auth.TokenVerifier
	Store    core.MessageStore
	Registry *app.Registry
	History  int

	validate *validator.Validate
}

func NewHandlers(tokens *auth.TokenVerifier, st core.MessageStore, registry *app.Registry, historyLimit int) *Handlers {
	return &Handlers{
		Tokens:   tokens,
		Store:    st,
		Registry: registry,
		History:  historyLimit,
		validate: validator.New(),
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "onlineUsers": len(h.Registry.OnlineUsers())})
}

// RequireAuth verifies the bearer credential and stashes the resolved
// identity on the request context.
func (h *Handlers) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		identity, err := h.Tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(domain.Identity)
	return identity
}

type issueTokenRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=doctor patient admin"`
	TTL    string `json:"ttl"`
}

// IssueToken mints a development credential. Not mounted in release mode;
// real tokens come from the account service.
func (h *Handlers) IssueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ttl := 24 * time.Hour
	if req.TTL != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ttl"})
			return
		}
		ttl = d
	}
	token, err := h.Tokens.Issue(domain.UserID(req.UserID), domain.Role(req.Role), ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type createChatRequest struct {
	Participants []string `json:"participants" validate:"required,len=2,unique"`
}

// CreateChat persists a two-party channel. The caller must be one of the
// participants.
func (h *Handlers) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	identity := identityFrom(c)
	participants := lo.Map(req.Participants, func(p string, _ int) domain.UserID { return domain.UserID(p) })
	if !lo.Contains(participants, identity.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "caller must be a participant"})
		return
	}
	ch, err := h.Store.CreateChannel(c.Request.Context(), participants)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create channel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create chat failed"})
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// GetMessages pages through a channel's history, newest first, with
// sender profiles attached.
func (h *Handlers) GetMessages(c *gin.Context) {
	chatID := domain.ChannelID(c.Param("chatId"))
	ch, err := h.Store.Channel(c.Request.Context(), chatID)
	if errors.Is(err, store.ErrChannelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load chat failed"})
		return
	}
	identity := identityFrom(c)
	if !lo.Contains(ch.Participants, identity.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	var cursor *string
	if cur := c.Query("cursor"); cur != "" {
		cursor = &cur
	}
	messages, next, err := h.Store.MessagesByChannel(c.Request.Context(), chatID, cursor, h.History)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("load messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load messages failed"})
		return
	}

	profiles := make(map[domain.UserID]domain.Profile)
	views := lo.Map(messages, func(m domain.Message, _ int) core.MessageView {
		p, ok := profiles[m.SenderID]
		if !ok {
			var perr error
			p, perr = h.Store.Profile(c.Request.Context(), m.SenderID)
			if perr != nil {
				p = domain.Profile{ID: m.SenderID}
			}
			profiles[m.SenderID] = p
		}
		return core.MessageView{Message: m, Sender: p}
	})
	c.JSON(http.StatusOK, gin.H{"messages": views, "nextCursor": next})
}

type saveProfileRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
}

// SaveProfile upserts the caller's public profile, the data attached to
// their outgoing messages.
func (h *Handlers) SaveProfile(c *gin.Context) {
	var req saveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	identity := identityFrom(c)
	p := domain.Profile{ID: identity.ID, Name: req.Name, Avatar: req.Avatar}
	if err := h.Store.SaveProfile(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save profile failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type pushNotificationRequest struct {
	UserID      string `json:"userId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Body        string `json:"message" validate:"required"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"referenceId"`
}

// PushNotification delivers an application-level notification to a
// connected identity on behalf of another service. Best-effort: an
// offline target is reported, not retried.
func (h *Handlers) PushNotification(c *gin.Context) {
	identity := identityFrom(c)
	if identity.Role != domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	var req pushNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delivered := h.Registry.PushTo(domain.UserID(req.UserID), core.NotificationEvent{
		Type:        core.EventNotification,
		Title:       req.Title,
		Body:        req.Body,
		Kind:        req.Kind,
		ReferenceID: req.ReferenceID,
	})
	c.JSON(http.StatusOK, gin.H{"delivered": delivered})
}
