package app

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

func TestVideoJoinOrderScenario(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	vc := NewVideoCoordinator(registry)

	alice, aliceConn := newTestSession("alice", domain.RoleDoctor)
	bob, bobConn := newTestSession("bob", domain.RolePatient)

	vc.Join(alice, "R1", "alice", "Alice")
	first := aliceConn.eventsOfType(t, core.EventExistingParts)
	req.Len(first, 1)
	req.Empty(first[0]["participants"])

	vc.Join(bob, "R1", "bob", "Bob")
	second := bobConn.eventsOfType(t, core.EventExistingParts)
	req.Len(second, 1)
	req.Equal([]any{"alice"}, second[0]["participants"])

	joined := aliceConn.eventsOfType(t, core.EventUserJoinedVideo)
	req.Len(joined, 1)
	req.Equal("bob", joined[0]["userId"])
	req.Equal("Bob", joined[0]["userName"])
	req.Equal(string(bob.ID), joined[0]["connId"])

	req.Equal([]domain.UserID{"alice", "bob"}, vc.Participants("R1"))
}

func TestVideoRejoinDoesNotDuplicateParticipant(t *testing.T) {
	req := require.New(t)
	vc := NewVideoCoordinator(NewRegistry())
	alice, _ := newTestSession("alice", domain.RoleDoctor)

	vc.Join(alice, "R1", "alice", "Alice")
	vc.Join(alice, "R1", "alice", "Alice")
	req.Equal([]domain.UserID{"alice"}, vc.Participants("R1"))
}

func TestVideoLeaveDeletesEmptyRoom(t *testing.T) {
	req := require.New(t)
	vc := NewVideoCoordinator(NewRegistry())
	alice, aliceConn := newTestSession("alice", domain.RoleDoctor)

	vc.Join(alice, "R1", "alice", "Alice")
	vc.Leave(alice, "R1", "alice")
	req.Nil(vc.Participants("R1"))

	// A subsequent join recreates the room fresh.
	aliceConn.reset()
	vc.Join(alice, "R1", "alice", "Alice")
	parts := aliceConn.eventsOfType(t, core.EventExistingParts)
	req.Len(parts, 1)
	req.Empty(parts[0]["participants"])
}

func TestVideoLeaveNotifiesRemaining(t *testing.T) {
	req := require.New(t)
	vc := NewVideoCoordinator(NewRegistry())
	alice, _ := newTestSession("alice", domain.RoleDoctor)
	bob, bobConn := newTestSession("bob", domain.RolePatient)

	vc.Join(alice, "R1", "alice", "Alice")
	vc.Join(bob, "R1", "bob", "Bob")
	bobConn.reset()

	vc.Leave(alice, "R1", "alice")
	left := bobConn.eventsOfType(t, core.EventUserLeftVideo)
	req.Len(left, 1)
	req.Equal("alice", left[0]["userId"])
	req.Equal([]domain.UserID{"bob"}, vc.Participants("R1"))
}

func TestVideoDirectedRelay(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	vc := NewVideoCoordinator(registry)

	alice, aliceConn := newTestSession("alice", domain.RoleDoctor)
	bob, bobConn := newTestSession("bob", domain.RolePatient)
	registry.Register(alice)
	registry.Register(bob)
	aliceConn.reset()
	bobConn.reset()

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}
	vc.RelaySDP(alice, core.EventWebRTCOffer, bob.ID, offer)

	got := bobConn.eventsOfType(t, core.EventWebRTCOffer)
	req.Len(got, 1)
	req.Equal(string(alice.ID), got[0]["from"])
	req.Equal("alice", got[0]["userId"])
	req.Empty(aliceConn.eventsOfType(t, core.EventWebRTCOffer))

	vc.RelayICE(bob, alice.ID, webrtc.ICECandidateInit{Candidate: "candidate:0"})
	cands := aliceConn.eventsOfType(t, core.EventICECandidate)
	req.Len(cands, 1)
	req.Equal(string(bob.ID), cands[0]["from"])
}

func TestVideoRelayStaleTargetDroppedSilently(t *testing.T) {
	registry := NewRegistry()
	vc := NewVideoCoordinator(registry)
	alice, aliceConn := newTestSession("alice", domain.RoleDoctor)
	registry.Register(alice)
	aliceConn.reset()

	vc.RelaySDP(alice, core.EventWebRTCAnswer, core.ConnID("gone"), webrtc.SessionDescription{})
	vc.RelayICE(alice, core.ConnID("gone"), webrtc.ICECandidateInit{})
	require.Empty(t, aliceConn.events(t))
}

func TestVideoToggleMediaAndScreenShare(t *testing.T) {
	req := require.New(t)
	vc := NewVideoCoordinator(NewRegistry())
	alice, aliceConn := newTestSession("alice", domain.RoleDoctor)
	bob, bobConn := newTestSession("bob", domain.RolePatient)

	vc.Join(alice, "R1", "alice", "Alice")
	vc.Join(bob, "R1", "bob", "Bob")
	aliceConn.reset()
	bobConn.reset()

	vc.ToggleMedia(alice, "R1", "audio", false)
	toggles := bobConn.eventsOfType(t, core.EventUserToggledMedia)
	req.Len(toggles, 1)
	req.Equal("audio", toggles[0]["media"])
	req.Equal(false, toggles[0]["enabled"])
	req.Empty(aliceConn.events(t))

	vc.ScreenShare(alice, "R1", true)
	shares := bobConn.eventsOfType(t, core.EventUserScreenSharing)
	req.Len(shares, 1)
	req.Equal(true, shares[0]["sharing"])
}

func TestVideoOnDisconnectLeavesAllRooms(t *testing.T) {
	req := require.New(t)
	vc := NewVideoCoordinator(NewRegistry())

	alice, _ := newTestSession("alice", domain.RoleDoctor)
	bob, bobConn := newTestSession("bob", domain.RolePatient)
	carol, carolConn := newTestSession("carol", domain.RolePatient)

	vc.Join(alice, "R1", "alice", "Alice")
	vc.Join(bob, "R1", "bob", "Bob")
	vc.Join(alice, "R2", "alice", "Alice")
	vc.Join(carol, "R2", "carol", "Carol")
	bobConn.reset()
	carolConn.reset()

	vc.OnDisconnect(alice)

	for _, conn := range []*fakeConn{bobConn, carolConn} {
		left := conn.eventsOfType(t, core.EventUserLeftVideo)
		req.Len(left, 1)
		req.Equal("alice", left[0]["userId"])
	}
	req.Equal([]domain.UserID{"bob"}, vc.Participants("R1"))
	req.Equal([]domain.UserID{"carol"}, vc.Participants("R2"))

	vc.OnDisconnect(bob)
	req.Nil(vc.Participants("R1"))
}
