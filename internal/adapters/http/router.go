// Package http wires the gin router: health, the websocket endpoint and
// the REST surface backing it (chat creation, history, notification push).
package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mediconnect/realtime/internal/adapters/signal"
	"github.com/mediconnect/realtime/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.Controller, h *Handlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", h.Health)

	if cfg.Mode != "release" {
		api.POST("/auth/token", h.IssueToken)
	}

	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	authed := api.Group("", h.RequireAuth())
	authed.POST("/chats", h.CreateChat)
	authed.GET("/chats/:chatId/messages", h.GetMessages)
	authed.POST("/profiles", h.SaveProfile)
	authed.POST("/notifications/push", h.PushNotification)

	return r
}
