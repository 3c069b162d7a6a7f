package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"

	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
)

func (ctl *Controller) handleJoinVideoRoom(sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		RoomID   string `json:"roomId"`
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		ctl.badPayload(c, err, "join-video-room")
		return
	}
	userID := domain.UserID(p.UserID)
	if userID == "" {
		userID = sess.Identity.ID
	}
	ctl.Video.Join(sess, domain.RoomID(p.RoomID), userID, p.UserName)
}

func (ctl *Controller) handleSDPRelay(sess *core.Session, c *wsConn, data []byte, event string) {
	var p struct {
		RoomID string                    `json:"roomId"`
		SDP    webrtc.SessionDescription `json:"sdp"`
		To     string                    `json:"to"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		ctl.badPayload(c, err, "sdp relay")
		return
	}
	ctl.Video.RelaySDP(sess, event, core.ConnID(p.To), p.SDP)
}

func (ctl *Controller) handleICECandidate(sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		Candidate webrtc.ICECandidateInit `json:"candidate"`
		To        string                  `json:"to"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		ctl.badPayload(c, err, "ice-candidate")
		return
	}
	ctl.Video.RelayICE(sess, core.ConnID(p.To), p.Candidate)
}

func (ctl *Controller) handleToggleMedia(sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		RoomID  string `json:"roomId"`
		Media   string `json:"media"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		ctl.badPayload(c, err, "toggle-media")
		return
	}
	ctl.Video.ToggleMedia(sess, domain.RoomID(p.RoomID), p.Media, p.Enabled)
}

func (ctl *Controller) handleScreenShare(sess *core.Session, c *wsConn, data []byte, sharing bool) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		ctl.badPayload(c, err, "screen-share")
		return
	}
	ctl.Video.ScreenShare(sess, domain.RoomID(p.RoomID), sharing)
}

func (ctl *Controller) handleLeaveVideoRoom(sess *core.Session, c *wsConn, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		ctl.badPayload(c, err, "leave-video-room")
		return
	}
	userID := domain.UserID(p.UserID)
	if userID == "" {
		userID = sess.Identity.ID
	}
	ctl.Video.Leave(sess, domain.RoomID(p.RoomID), userID)
}
