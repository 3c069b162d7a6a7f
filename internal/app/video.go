package app

import (
	"slices"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

// videoRoom is a transient call room: the identities on the call plus the
// connections subscribed to its broadcasts. It exists only while occupied.
type videoRoom struct {
	participants map[domain.UserID]struct{}
	group        map[core.ConnID]*core.Session
}

// VideoCoordinator maintains per-room participant sets and relays
// signaling metadata for multi-party calls. It never touches media; every
// operation is advisory and best-effort.
type VideoCoordinator struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*videoRoom

	registry *Registry
}

func NewVideoCoordinator(registry *Registry) *VideoCoordinator {
	return &VideoCoordinator{
		rooms:    make(map[domain.RoomID]*videoRoom),
		registry: registry,
	}
}

// Join adds the identity to the room, creating it lazily. Current members
// are told about the newcomer; the newcomer alone receives the participant
// list captured at join time so it can start signaling toward each peer.
func (vc *VideoCoordinator) Join(s *core.Session, roomID domain.RoomID, userID domain.UserID, name string) {
	vc.mu.Lock()
	room, ok := vc.rooms[roomID]
	if !ok {
		room = &videoRoom{
			participants: make(map[domain.UserID]struct{}),
			group:        make(map[core.ConnID]*core.Session),
		}
		vc.rooms[roomID] = room
	}
	existing := lo.Keys(room.participants)
	existing = lo.Without(existing, userID)
	slices.Sort(existing)

	room.participants[userID] = struct{}{}
	room.group[s.ID] = s
	others := vc.othersLocked(room, s.ID)
	vc.mu.Unlock()

	joined := core.UserJoinedVideoEvent{
		Type:     core.EventUserJoinedVideo,
		UserID:   userID,
		UserName: name,
		ConnID:   s.ID,
	}
	for _, member := range others {
		push(member.Signal(), joined)
	}
	push(s.Signal(), core.ExistingParticipantsEvent{
		Type:         core.EventExistingParts,
		RoomID:       roomID,
		Participants: existing,
	})
	log.Info().Str("module", "app.video").Str("room", string(roomID)).Str("user", string(userID)).Msg("joined video room")
}

// RelaySDP delivers an offer or answer to exactly one connection,
// annotated with the sender's connection and identity. A stale target is
// a normal race and is silently dropped.
func (vc *VideoCoordinator) RelaySDP(s *core.Session, event string, to core.ConnID, sdp webrtc.SessionDescription) {
	target, ok := vc.registry.ByConn(to)
	if !ok {
		log.Debug().Str("module", "app.video").Str("to", string(to)).Msg("relay target gone")
		return
	}
	push(target.Signal(), core.SDPRelayEvent{
		Type:   event,
		SDP:    sdp,
		From:   s.ID,
		UserID: s.Identity.ID,
	})
}

// RelayICE delivers an ICE candidate to exactly one connection. Stale
// targets are silently dropped.
func (vc *VideoCoordinator) RelayICE(s *core.Session, to core.ConnID, candidate webrtc.ICECandidateInit) {
	target, ok := vc.registry.ByConn(to)
	if !ok {
		return
	}
	push(target.Signal(), core.ICECandidateEvent{
		Type:      core.EventICECandidate,
		Candidate: candidate,
		From:      s.ID,
	})
}

// ToggleMedia announces a mute/unmute or camera state change to the
// room's other members. The coordinator keeps no media state itself.
func (vc *VideoCoordinator) ToggleMedia(s *core.Session, roomID domain.RoomID, media string, enabled bool) {
	vc.broadcast(roomID, s.ID, core.UserToggledMediaEvent{
		Type:    core.EventUserToggledMedia,
		UserID:  s.Identity.ID,
		Media:   media,
		Enabled: enabled,
	})
}

// ScreenShare announces screen-share start/stop to the room's other
// members. Stateless pass-through.
func (vc *VideoCoordinator) ScreenShare(s *core.Session, roomID domain.RoomID, sharing bool) {
	vc.broadcast(roomID, s.ID, core.UserScreenSharingEvent{
		Type:    core.EventUserScreenSharing,
		UserID:  s.Identity.ID,
		Sharing: sharing,
	})
}

// Leave removes the identity from the room and deletes the room once the
// last participant is gone.
func (vc *VideoCoordinator) Leave(s *core.Session, roomID domain.RoomID, userID domain.UserID) {
	vc.mu.Lock()
	room, ok := vc.rooms[roomID]
	if !ok {
		vc.mu.Unlock()
		return
	}
	delete(room.participants, userID)
	delete(room.group, s.ID)
	remaining := vc.othersLocked(room, s.ID)
	if len(room.participants) == 0 {
		delete(vc.rooms, roomID)
	}
	vc.mu.Unlock()

	left := core.UserLeftVideoEvent{Type: core.EventUserLeftVideo, UserID: userID, ConnID: s.ID}
	for _, member := range remaining {
		push(member.Signal(), left)
	}
	log.Info().Str("module", "app.video").Str("room", string(roomID)).Str("user", string(userID)).Msg("left video room")
}

// OnDisconnect performs Leave for every room the identity is currently
// in. The only path that scans all rooms; cost is proportional to the
// number of concurrently active calls.
func (vc *VideoCoordinator) OnDisconnect(s *core.Session) {
	vc.mu.Lock()
	type departure struct {
		roomID    domain.RoomID
		remaining []*core.Session
	}
	var departures []departure
	for roomID, room := range vc.rooms {
		delete(room.group, s.ID)
		if _, ok := room.participants[s.Identity.ID]; !ok {
			continue
		}
		delete(room.participants, s.Identity.ID)
		departures = append(departures, departure{roomID: roomID, remaining: vc.othersLocked(room, s.ID)})
		if len(room.participants) == 0 {
			delete(vc.rooms, roomID)
		}
	}
	vc.mu.Unlock()

	for _, d := range departures {
		left := core.UserLeftVideoEvent{Type: core.EventUserLeftVideo, UserID: s.Identity.ID, ConnID: s.ID}
		for _, member := range d.remaining {
			push(member.Signal(), left)
		}
		log.Info().Str("module", "app.video").Str("room", string(d.roomID)).Str("user", string(s.Identity.ID)).Msg("disconnected from video room")
	}
}

// Participants returns the room's current identity set, or nil if the
// room does not exist.
func (vc *VideoCoordinator) Participants(roomID domain.RoomID) []domain.UserID {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	room, ok := vc.rooms[roomID]
	if !ok {
		return nil
	}
	ids := lo.Keys(room.participants)
	slices.Sort(ids)
	return ids
}

func (vc *VideoCoordinator) broadcast(roomID domain.RoomID, skip core.ConnID, v any) {
	vc.mu.Lock()
	room, ok := vc.rooms[roomID]
	var members []*core.Session
	if ok {
		members = vc.othersLocked(room, skip)
	}
	vc.mu.Unlock()
	for _, member := range members {
		push(member.Signal(), v)
	}
}

func (vc *VideoCoordinator) othersLocked(room *videoRoom, skip core.ConnID) []*core.Session {
	out := make([]*core.Session, 0, len(room.group))
	for id, member := range room.group {
		if id == skip {
			continue
		}
		out = append(out, member)
	}
	return out
}
