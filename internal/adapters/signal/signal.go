// Package signal is the websocket dispatcher: it authenticates each new
// connection once, pumps its ordered event stream through a typed
// dispatch table, and tears down component state on disconnect.
package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mediconnect/realtime/internal/app"
	"github.com/mediconnect/realtime/internal/config"
	"github.com/mediconnect/realtime/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Cfg      *config.Config
	Verifier core.Verifier
	Registry *app.Registry
	Chat     *app.ChatRelay
	Video    *app.VideoCoordinator
}

func NewController(cfg *config.Config, verifier core.Verifier, registry *app.Registry, chat *app.ChatRelay, video *app.VideoCoordinator) *Controller {
	return &Controller{
		Cfg:      cfg,
		Verifier: verifier,
		Registry: registry,
		Chat:     chat,
		Video:    video,
	}
}

// wsConn wraps one websocket connection behind a buffered send channel so
// fan-out never blocks on a slow peer.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// credential pulls the bearer credential from the handshake: the token
// query parameter or an Authorization header.
func credential(c *gin.Context) string {
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	return strings.TrimPrefix(h, "Bearer ")
}

// HandleSignal authenticates and admits one websocket connection. A bad
// or missing credential is rejected before the upgrade; nothing about the
// connection reaches the registry or any component.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	identity, err := ctl.Verifier.Verify(credential(c))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("auth rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	sess := core.NewSession(identity, conn)
	log.Info().Str("module", "signal").Str("conn", string(sess.ID)).Str("user", string(identity.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Register(sess)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}

// cleanup runs once per connection, after its read loop ends: registry
// entry, chat group memberships, then video rooms.
func (ctl *Controller) cleanup(sess *core.Session) {
	ctl.Registry.Unregister(sess)
	ctl.Chat.DropConn(sess)
	ctl.Video.OnDisconnect(sess)
}
