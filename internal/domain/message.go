package domain

import (
	"errors"
	"time"
)

type ChannelID string

type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
	MessageFile  MessageKind = "file"
)

var ErrUnknownMessageKind = errors.New("unknown message kind")

// ParseMessageKind maps a wire value to a MessageKind, defaulting empty to text.
func ParseMessageKind(s string) (MessageKind, error) {
	switch MessageKind(s) {
	case MessageText, MessageImage, MessageFile:
		return MessageKind(s), nil
	case "":
		return MessageText, nil
	}
	return "", ErrUnknownMessageKind
}

// Message is owned by the message store. Content is never mutated after
// creation; only the read flags change.
type Message struct {
	ID        string      `json:"id"`
	ChannelID ChannelID   `json:"chatId"`
	SenderID  UserID      `json:"sender"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"messageType"`
	FileURL   string      `json:"fileUrl,omitempty"`
	FileName  string      `json:"fileName,omitempty"`
	FileSize  int64       `json:"fileSize,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	IsRead    bool        `json:"isRead"`
	ReadAt    *time.Time  `json:"readAt,omitempty"`
}

// Channel is a persisted two-party conversation. Participants are fixed at
// creation; live broadcast membership is tracked separately by the relay.
type Channel struct {
	ID            ChannelID `json:"id"`
	Participants  []UserID  `json:"participants"`
	LastMessageID string    `json:"lastMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
