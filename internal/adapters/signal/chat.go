package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mediconnect/realtime/internal/app"
	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

func (ctl *Controller) badPayload(c *wsConn, err error, what string) {
	log.Warn().Err(err).Str("module", "signal").Msg("bad " + what + " payload")
	ctl.sendJSON(c, core.ErrorEvent{Type: core.EventError, Error: "bad_payload"})
}

func (ctl *Controller) handleJoinChat(sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ChatID == "" {
		ctl.badPayload(c, err, "join-chat")
		return
	}
	ctl.Chat.Join(sess, domain.ChannelID(p.ChatID))
}

func (ctl *Controller) handleLeaveChat(sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ChatID == "" {
		ctl.badPayload(c, err, "leave-chat")
		return
	}
	ctl.Chat.Leave(sess, domain.ChannelID(p.ChatID))
}

func (ctl *Controller) handleSendMessage(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		ChatID   string `json:"chatId"`
		Content  string `json:"content"`
		Kind     string `json:"messageType"`
		FileURL  string `json:"fileUrl"`
		FileName string `json:"fileName"`
		FileSize int64  `json:"fileSize"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ChatID == "" {
		ctl.badPayload(c, err, "send-message")
		return
	}
	kind, err := domain.ParseMessageKind(p.Kind)
	if err != nil {
		ctl.badPayload(c, err, "send-message")
		return
	}
	// Error reporting to the sender happens inside the relay.
	_, _ = ctl.Chat.Send(ctx, sess, app.SendMessageInput{
		ChannelID: domain.ChannelID(p.ChatID),
		Content:   p.Content,
		Kind:      kind,
		FileURL:   p.FileURL,
		FileName:  p.FileName,
		FileSize:  p.FileSize,
	})
}

func (ctl *Controller) handleTyping(sess *core.Session, c *wsConn, data []byte, typing bool) {
	var p struct {
		ChatID string `json:"chatId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ChatID == "" {
		ctl.badPayload(c, err, "typing")
		return
	}
	ctl.Chat.Typing(sess, domain.ChannelID(p.ChatID), typing)
}

func (ctl *Controller) handleMarkRead(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		ChatID     string   `json:"chatId"`
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.ChatID == "" || len(p.MessageIDs) == 0 {
		ctl.badPayload(c, err, "mark-read")
		return
	}
	ctl.Chat.MarkRead(ctx, sess, domain.ChannelID(p.ChatID), p.MessageIDs)
}
