package app

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

// Registry tracks which identities are currently reachable and which
// connections are live. At most one entry per identity: a later connection
// from the same identity overwrites the mapping, the older network
// connection is left to die on its own liveness timeout.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*core.Session
	byConn map[core.ConnID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]*core.Session),
		byConn: make(map[core.ConnID]*core.Session),
	}
}

// Register admits an authenticated session and announces the new online
// set to every live connection.
func (r *Registry) Register(s *core.Session) {
	r.mu.Lock()
	r.byConn[s.ID] = s
	r.byUser[s.Identity.ID] = s
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(s.ID)).Str("user", string(s.Identity.ID)).Msg("session registered")
	r.broadcastOnline()
}

// Unregister removes the session. The identity mapping is dropped only if
// it still points at this session, so a superseded connection going away
// does not evict its successor. Idempotent.
func (r *Registry) Unregister(s *core.Session) {
	r.mu.Lock()
	delete(r.byConn, s.ID)
	if cur, ok := r.byUser[s.Identity.ID]; ok && cur == s {
		delete(r.byUser, s.Identity.ID)
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(s.ID)).Str("user", string(s.Identity.ID)).Msg("session unregistered")
	r.broadcastOnline()
}

// Lookup returns the identity's current session. Absence means "deliver
// nothing, do not retry".
func (r *Registry) Lookup(id domain.UserID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byUser[id]
	return s, ok
}

// ByConn resolves a transport-level connection id, as used by directed
// signaling relays.
func (r *Registry) ByConn(id core.ConnID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byConn[id]
	return s, ok
}

// OnlineUsers returns the current online identity set, sorted for stable
// snapshots.
func (r *Registry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	ids := lo.Keys(r.byUser)
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// PushTo delivers one event to the identity's current connection, if any.
// Reports whether a handle was found; delivery itself is best-effort.
func (r *Registry) PushTo(id domain.UserID, v any) bool {
	s, ok := r.Lookup(id)
	if !ok {
		return false
	}
	push(s.Signal(), v)
	return true
}

func (r *Registry) sessions() []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byConn)
}

// Every membership change is announced to all live handles, not just
// affected parties. O(n) per connect/disconnect, fine at this scale.
func (r *Registry) broadcastOnline() {
	ev := core.OnlineUsersEvent{Type: core.EventOnlineUsers, Users: r.OnlineUsers()}
	for _, s := range r.sessions() {
		push(s.Signal(), ev)
	}
}
