package core

import (
	"github.com/google/uuid"

	"github.com/mediconnect/realtime/internal/domain"
)

// Session binds an authenticated identity and its transport endpoint.
// This is what registries and broadcast groups store and fan out to.
type Session struct {
	ID       ConnID
	Identity domain.Identity

	conn SignalConnection
}

func NewSession(identity domain.Identity, conn SignalConnection) *Session {
	return &Session{
		ID:       ConnID(uuid.NewString()),
		Identity: identity,
		conn:     conn,
	}
}

func (s *Session) Signal() SignalConnection { return s.conn }
