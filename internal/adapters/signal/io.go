package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mediconnect/realtime/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the connection's single ordered event stream: every inbound
// event is handled to completion before the next is read, so per-connection
// ordering is strict.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess *core.Session, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sess.ID)).Msg("readPump closing")
		ctl.cleanup(sess)
		cancel()
		c.Close()
	}()

	readWindow := 2 * ctl.Cfg.PingPeriod
	_ = c.conn.SetReadDeadline(time.Now().Add(readWindow))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWindow))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(sess.ID)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(ctx, sess, c, data)
		}
	}
}

// handleEvent routes one inbound frame by its declared type. A malformed
// frame is a no-op with a diagnostic echo; it never affects the reactor.
func (ctl *Controller) handleEvent(ctx context.Context, sess *core.Session, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendJSON(c, core.ErrorEvent{Type: core.EventError, Error: "bad_payload"})
		return
	}

	switch env.Type {
	case "join-chat":
		ctl.handleJoinChat(sess, c, data)
	case "leave-chat":
		ctl.handleLeaveChat(sess, c, data)
	case "send-message":
		ctl.handleSendMessage(ctx, sess, c, data)
	case "typing":
		ctl.handleTyping(sess, c, data, true)
	case "stop-typing":
		ctl.handleTyping(sess, c, data, false)
	case "mark-read":
		ctl.handleMarkRead(ctx, sess, c, data)
	case "join-video-room":
		ctl.handleJoinVideoRoom(sess, c, data)
	case "webrtc-offer":
		ctl.handleSDPRelay(sess, c, data, core.EventWebRTCOffer)
	case "webrtc-answer":
		ctl.handleSDPRelay(sess, c, data, core.EventWebRTCAnswer)
	case "ice-candidate":
		ctl.handleICECandidate(sess, c, data)
	case "toggle-media":
		ctl.handleToggleMedia(sess, c, data)
	case "screen-share-started":
		ctl.handleScreenShare(sess, c, data, true)
	case "screen-share-stopped":
		ctl.handleScreenShare(sess, c, data, false)
	case "leave-video-room":
		ctl.handleLeaveVideoRoom(sess, c, data)
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": core.EventPong})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		ctl.sendJSON(c, core.ErrorEvent{Type: core.EventError, Error: "unknown event"})
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
