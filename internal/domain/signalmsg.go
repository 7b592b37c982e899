package domain

import "github.com/pion/webrtc/v3"

// Frame types understood by the signaling hub. Anything else is an
// opaque relay payload forwarded to the sender's room untouched except
// for the fromPeerId stamp.
const (
	FrameJoin       = "join"
	FrameJoined     = "joined"
	FramePeerJoined = "peer_joined"
	FramePeerLeft   = "peer_left"
	FramePing       = "ping"
	FramePong       = "pong"
	FrameError      = "error"
)

type SignalMessage struct {
	Type       string                     `json:"type"`
	RoomID     string                     `json:"roomId,omitempty"`
	PeerID     string                     `json:"peerId,omitempty"`
	FromPeerID string                     `json:"fromPeerId,omitempty"`
	Token      string                     `json:"token,omitempty"`
	Message    string                     `json:"message,omitempty"`
	SDP        *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate  *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Payload    map[string]any             `json:"payload,omitempty"`
}
