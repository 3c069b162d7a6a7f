package core

import (
	"github.com/pion/webrtc/v4"

	"github.com/mediconnect/realtime/internal/domain"
)

// Event names of the wire protocol. Every frame is a JSON object carrying
// its event name in a "type" field next to the payload.
const (
	EventOnlineUsers         = "online-users"
	EventNewMessage          = "new-message"
	EventMessageNotification = "message-notification"
	EventMessageError        = "message-error"
	EventUserTyping          = "user-typing"
	EventUserStopTyping      = "user-stop-typing"
	EventMessagesRead        = "messages-read"
	EventUserJoinedVideo     = "user-joined-video"
	EventExistingParts       = "existing-participants"
	EventWebRTCOffer         = "webrtc-offer"
	EventWebRTCAnswer        = "webrtc-answer"
	EventICECandidate        = "ice-candidate"
	EventUserToggledMedia    = "user-toggled-media"
	EventUserScreenSharing   = "user-screen-sharing"
	EventUserLeftVideo       = "user-left-video"
	EventNotification        = "notification"
	EventError               = "error"
	EventPong                = "pong"
)

// MessageView is a Message with the sender profile attached, the shape
// broadcast to chat subscribers.
type MessageView struct {
	domain.Message
	Sender domain.Profile `json:"senderProfile"`
}

type OnlineUsersEvent struct {
	Type  string          `json:"type"`
	Users []domain.UserID `json:"users"`
}

type NewMessageEvent struct {
	Type    string      `json:"type"`
	Message MessageView `json:"message"`
}

type MessageNotificationEvent struct {
	Type      string           `json:"type"`
	ChannelID domain.ChannelID `json:"chatId"`
	Message   MessageView      `json:"message"`
}

type MessageErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type TypingEvent struct {
	Type      string           `json:"type"`
	ChannelID domain.ChannelID `json:"chatId"`
	UserID    domain.UserID    `json:"userId"`
}

type MessagesReadEvent struct {
	Type       string           `json:"type"`
	ChannelID  domain.ChannelID `json:"chatId"`
	MessageIDs []string         `json:"messageIds"`
	ReadBy     domain.UserID    `json:"readBy"`
}

type UserJoinedVideoEvent struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
	ConnID   ConnID        `json:"connId"`
}

type ExistingParticipantsEvent struct {
	Type         string          `json:"type"`
	RoomID       domain.RoomID   `json:"roomId"`
	Participants []domain.UserID `json:"participants"`
}

// SDPRelayEvent carries a directed offer or answer between two peers.
type SDPRelayEvent struct {
	Type   string                    `json:"type"`
	SDP    webrtc.SessionDescription `json:"sdp"`
	From   ConnID                    `json:"from"`
	UserID domain.UserID             `json:"userId"`
}

type ICECandidateEvent struct {
	Type      string                  `json:"type"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
	From      ConnID                  `json:"from"`
}

type UserToggledMediaEvent struct {
	Type    string        `json:"type"`
	UserID  domain.UserID `json:"userId"`
	Media   string        `json:"media"`
	Enabled bool          `json:"enabled"`
}

type UserScreenSharingEvent struct {
	Type    string        `json:"type"`
	UserID  domain.UserID `json:"userId"`
	Sharing bool          `json:"sharing"`
}

type UserLeftVideoEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
	ConnID ConnID        `json:"connId"`
}

// NotificationEvent is an application-level notification pushed to one
// online identity on behalf of another service.
type NotificationEvent struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Body        string `json:"message"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"referenceId,omitempty"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
