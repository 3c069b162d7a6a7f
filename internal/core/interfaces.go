package core

import (
	"context"
	"time"

	"github.com/mediconnect/realtime/internal/domain"
)

// Frame is an encoded event ready for the wire.
type Frame []byte

// ConnID is the transport-level identifier of one live connection.
// Directed signaling relays address peers by ConnID, never by identity.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Verifier resolves a bearer credential presented at connect time.
// Rejection is terminal: the connection is never admitted.
type Verifier interface {
	Verify(credential string) (domain.Identity, error)
}

// MessageStore is the durable side of the chat relay. Failures are
// retryable per request and never fatal to a connection.
type MessageStore interface {
	CreateChannel(ctx context.Context, participants []domain.UserID) (domain.Channel, error)
	Channel(ctx context.Context, id domain.ChannelID) (domain.Channel, error)
	SetLastMessage(ctx context.Context, id domain.ChannelID, messageID string) error

	CreateMessage(ctx context.Context, m domain.Message) error
	MessagesByChannel(ctx context.Context, id domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error)
	// MarkRead flags the given messages as read, skipping any authored by
	// exclude. Returns the ids actually updated.
	MarkRead(ctx context.Context, ids []string, exclude domain.UserID, at time.Time) ([]string, error)

	Profile(ctx context.Context, id domain.UserID) (domain.Profile, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
}
