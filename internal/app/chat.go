package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

// SendMessageInput is the sender-supplied part of a new message.
type SendMessageInput struct {
	ChannelID domain.ChannelID
	Content   string
	Kind      domain.MessageKind
	FileURL   string
	FileName  string
	FileSize  int64
}

// ChatRelay owns per-channel live broadcast groups and fans persisted
// messages out to them. Joining a group only means "receive live fan-out";
// persisted channel membership is validated elsewhere.
type ChatRelay struct {
	mu     sync.RWMutex
	groups map[domain.ChannelID]map[core.ConnID]*core.Session

	store    core.MessageStore
	registry *Registry
}

func NewChatRelay(store core.MessageStore, registry *Registry) *ChatRelay {
	return &ChatRelay{
		groups:   make(map[domain.ChannelID]map[core.ConnID]*core.Session),
		store:    store,
		registry: registry,
	}
}

// Join subscribes the connection to a channel's live fan-out. Idempotent.
func (cr *ChatRelay) Join(s *core.Session, ch domain.ChannelID) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	g, ok := cr.groups[ch]
	if !ok {
		g = make(map[core.ConnID]*core.Session)
		cr.groups[ch] = g
	}
	g[s.ID] = s
	log.Info().Str("module", "app.chat").Str("conn", string(s.ID)).Str("chat", string(ch)).Msg("joined chat")
}

// Leave unsubscribes the connection. No-op if not a member.
func (cr *ChatRelay) Leave(s *core.Session, ch domain.ChannelID) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	if g, ok := cr.groups[ch]; ok {
		delete(g, s.ID)
		if len(g) == 0 {
			delete(cr.groups, ch)
		}
	}
	log.Info().Str("module", "app.chat").Str("conn", string(s.ID)).Str("chat", string(ch)).Msg("left chat")
}

// DropConn discards all of the connection's group memberships. Called once
// on disconnect; membership is connection-scoped.
func (cr *ChatRelay) DropConn(s *core.Session) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	for ch, g := range cr.groups {
		delete(g, s.ID)
		if len(g) == 0 {
			delete(cr.groups, ch)
		}
	}
}

// Members returns the connection ids currently joined to a channel.
func (cr *ChatRelay) Members(ch domain.ChannelID) []core.ConnID {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return lo.Keys(cr.groups[ch])
}

func (cr *ChatRelay) joined(ch domain.ChannelID, conn core.ConnID) bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	_, ok := cr.groups[ch][conn]
	return ok
}

// broadcast sends one event to every member of the channel's group,
// optionally skipping one connection.
func (cr *ChatRelay) broadcast(ch domain.ChannelID, skip core.ConnID, v any) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	for id, member := range cr.groups[ch] {
		if id == skip {
			continue
		}
		push(member.Signal(), v)
	}
}

// Send persists a message, updates the channel's last-message pointer and
// fans the resolved message out: once to every joined connection, and as a
// targeted notification to every online persisted participant who is not
// watching the channel. Store failures are reported to the sender only.
func (cr *ChatRelay) Send(ctx context.Context, s *core.Session, in SendMessageInput) (core.MessageView, error) {
	msg := domain.Message{
		ID:        uuid.NewString(),
		ChannelID: in.ChannelID,
		SenderID:  s.Identity.ID,
		Content:   in.Content,
		Kind:      in.Kind,
		FileURL:   in.FileURL,
		FileName:  in.FileName,
		FileSize:  in.FileSize,
		CreatedAt: time.Now().UTC(),
	}
	if msg.Kind == "" {
		msg.Kind = domain.MessageText
	}

	if err := cr.store.CreateMessage(ctx, msg); err != nil {
		cr.reportSendError(s, err)
		return core.MessageView{}, err
	}
	if err := cr.store.SetLastMessage(ctx, in.ChannelID, msg.ID); err != nil {
		cr.reportSendError(s, err)
		return core.MessageView{}, err
	}

	view := core.MessageView{Message: msg, Sender: cr.senderProfile(ctx, s.Identity.ID)}
	cr.broadcast(in.ChannelID, "", core.NewMessageEvent{Type: core.EventNewMessage, Message: view})
	cr.notifyAway(ctx, s, view)
	return view, nil
}

// notifyAway pushes an out-of-band notification to each persisted
// participant who is online but not joined to the channel's group, so a
// user with the app open still learns of new messages. Best-effort.
func (cr *ChatRelay) notifyAway(ctx context.Context, sender *core.Session, view core.MessageView) {
	ch, err := cr.store.Channel(ctx, view.ChannelID)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Str("chat", string(view.ChannelID)).Msg("load channel for notify")
		return
	}
	ev := core.MessageNotificationEvent{
		Type:      core.EventMessageNotification,
		ChannelID: view.ChannelID,
		Message:   view,
	}
	for _, p := range ch.Participants {
		if p == sender.Identity.ID {
			continue
		}
		target, ok := cr.registry.Lookup(p)
		if !ok || cr.joined(view.ChannelID, target.ID) {
			continue
		}
		push(target.Signal(), ev)
	}
}

func (cr *ChatRelay) reportSendError(s *core.Session, err error) {
	log.Error().Err(err).Str("module", "app.chat").Str("user", string(s.Identity.ID)).Msg("send message")
	push(s.Signal(), core.MessageErrorEvent{Type: core.EventMessageError, Error: err.Error()})
}

func (cr *ChatRelay) senderProfile(ctx context.Context, id domain.UserID) domain.Profile {
	p, err := cr.store.Profile(ctx, id)
	if err != nil {
		log.Debug().Err(err).Str("module", "app.chat").Str("user", string(id)).Msg("no sender profile")
		return domain.Profile{ID: id}
	}
	return p
}

// MarkRead bulk-flags messages as read, excluding any authored by the
// reader, and announces the receipt to the channel's other members.
// Read receipts are best-effort: failures are logged and swallowed.
func (cr *ChatRelay) MarkRead(ctx context.Context, s *core.Session, ch domain.ChannelID, ids []string) {
	updated, err := cr.store.MarkRead(ctx, ids, s.Identity.ID, time.Now().UTC())
	if err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Str("chat", string(ch)).Msg("mark read")
		return
	}
	if len(updated) == 0 {
		return
	}
	cr.broadcast(ch, s.ID, core.MessagesReadEvent{
		Type:       core.EventMessagesRead,
		ChannelID:  ch,
		MessageIDs: updated,
		ReadBy:     s.Identity.ID,
	})
}

// Typing relays a typing indicator to the channel's other members. Pure
// ephemeral broadcast, no persistence.
func (cr *ChatRelay) Typing(s *core.Session, ch domain.ChannelID, typing bool) {
	ev := core.TypingEvent{Type: core.EventUserTyping, ChannelID: ch, UserID: s.Identity.ID}
	if !typing {
		ev.Type = core.EventUserStopTyping
	}
	cr.broadcast(ch, s.ID, ev)
}
