package signaling

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/apmvoice/peerlink/internal/clock"
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/lib/logger/sl"
	"github.com/gorilla/websocket"
)

var (
	ErrAuthFailure = errors.New("signaling authentication failed")
	ErrNotJoined   = errors.New("connection has not joined a room")
)

type Config struct {
	// Token, when non-empty, must match the token field of join frames.
	Token             string
	StaleTimeout      time.Duration
	HeartbeatInterval time.Duration
	WriteWait         time.Duration
}

const (
	defaultStaleTimeout      = 30 * time.Second
	defaultHeartbeatInterval = 10 * time.Second
	defaultWriteWait         = 10 * time.Second
)

// Hub routes opaque signaling messages between connections that share a
// room and tracks per-connection liveness. All shared state (room
// membership, connection associations, last-seen timestamps) lives
// behind a single hub mutex; broadcasts operate on member snapshots so
// concurrent joins and disconnects never mutate a set mid-iteration.
type Hub struct {
	cfg Config
	clk clock.Clock
	log *slog.Logger

	mu    sync.Mutex
	rooms map[string]map[*Conn]struct{}
	conns map[*Conn]struct{}
}

func NewHub(cfg Config, clk clock.Clock, log *slog.Logger) *Hub {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = defaultStaleTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if clk == nil {
		clk = clock.System()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		cfg:   cfg,
		clk:   clk,
		log:   log,
		rooms: make(map[string]map[*Conn]struct{}),
		conns: make(map[*Conn]struct{}),
	}
}

// Connect registers a new transport endpoint. Authentication, if
// configured, happens at join time.
func (h *Hub) Connect(socket *websocket.Conn) *Conn {
	c := &Conn{
		hub:    h,
		socket: socket,
		send:   make(chan any, sendBufferSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	c.lastSeen = h.clk.Now()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	return c
}

// Join adds the connection to a room, announces it to the other
// members, and acknowledges the join to the connection itself. The ack
// is enqueued only after the peer_joined broadcast has been attempted.
func (h *Hub) Join(c *Conn, roomID, peerID, token string) error {
	if h.cfg.Token != "" && token != h.cfg.Token {
		return ErrAuthFailure
	}

	var (
		leftPeerID string
		leftOthers []*Conn
	)

	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return nil
	}

	if c.roomID != "" && c.roomID != roomID {
		leftPeerID = c.peerID
		leftOthers = h.removeFromRoomLocked(c)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[roomID] = room
	}
	room[c] = struct{}{}
	c.roomID = roomID
	c.peerID = peerID
	c.lastSeen = h.clk.Now()

	others := h.roomSnapshotLocked(roomID, c)
	roster := make([]string, 0, len(others))
	for _, member := range others {
		roster = append(roster, member.peerID)
	}
	h.mu.Unlock()

	if len(leftOthers) > 0 {
		h.deliver(leftOthers, domain.SignalMessage{
			Type:   domain.FramePeerLeft,
			PeerID: leftPeerID,
		})
	}

	h.deliver(others, domain.SignalMessage{
		Type:   domain.FramePeerJoined,
		PeerID: peerID,
	})

	h.deliver([]*Conn{c}, domain.SignalMessage{
		Type:   domain.FrameJoined,
		RoomID: roomID,
		PeerID: peerID,
	})

	// Replay the existing members to the joiner so both sides of a
	// concurrent join observe each other.
	for _, memberID := range roster {
		h.deliver([]*Conn{c}, domain.SignalMessage{
			Type:   domain.FramePeerJoined,
			PeerID: memberID,
		})
	}

	h.log.Info("peer joined room",
		slog.String("room_id", roomID),
		slog.String("peer_id", peerID),
	)
	return nil
}

// Relay stamps the message with the sender's joined identity and
// forwards it to every other member of the sender's room. The sender
// cannot spoof fromPeerId: any caller-supplied value is overwritten.
func (h *Hub) Relay(c *Conn, message map[string]any) error {
	h.mu.Lock()
	roomID, peerID := c.roomID, c.peerID
	var others []*Conn
	if roomID != "" {
		others = h.roomSnapshotLocked(roomID, c)
	}
	h.mu.Unlock()

	if roomID == "" {
		return ErrNotJoined
	}

	message["fromPeerId"] = peerID
	h.deliver(others, message)
	return nil
}

// Touch refreshes the connection's last-seen timestamp. Called on every
// inbound frame, including protocol pings and transport pongs.
func (h *Hub) Touch(c *Conn) {
	h.mu.Lock()
	c.lastSeen = h.clk.Now()
	h.mu.Unlock()
}

// Disconnect removes the connection from its room, announces the
// departure, and clears its association. Idempotent.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	delete(h.conns, c)

	peerID := c.peerID
	remaining := h.removeFromRoomLocked(c)
	hadRoom := c.roomID != ""
	c.roomID = ""
	c.peerID = ""
	h.mu.Unlock()

	close(c.done)
	if c.socket != nil {
		_ = c.socket.Close()
	}

	if hadRoom && len(remaining) > 0 {
		h.deliver(remaining, domain.SignalMessage{
			Type:   domain.FramePeerLeft,
			PeerID: peerID,
		})
	}
}

// SweepStale force-closes every connection whose last activity is older
// than the stale threshold, then runs it through Disconnect. Returns
// the number of evicted connections.
func (h *Hub) SweepStale() int {
	now := h.clk.Now()

	h.mu.Lock()
	var stale []*Conn
	for c := range h.conns {
		if now.Sub(c.lastSeen) > h.cfg.StaleTimeout {
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.mu.Lock()
		peerID := c.peerID
		h.mu.Unlock()
		h.log.Info("disconnecting stale connection", slog.String("peer_id", peerID))
		c.closeWith(websocket.CloseGoingAway, "stale connection")
		h.Disconnect(c)
	}
	return len(stale)
}

// HandleFrame dispatches one inbound text frame. A non-nil return means
// the connection is terminal and the read loop must stop.
func (h *Hub) HandleFrame(c *Conn, raw []byte) error {
	h.Touch(c)

	var msg domain.SignalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.enqueue(domain.SignalMessage{Type: domain.FrameError, Message: "invalid frame"})
		return nil
	}

	switch msg.Type {
	case domain.FrameJoin:
		if err := h.Join(c, msg.RoomID, msg.PeerID, msg.Token); err != nil {
			h.log.Warn("join rejected", sl.Err(err))
			c.closeWith(websocket.ClosePolicyViolation, "invalid token")
			h.Disconnect(c)
			return err
		}
	case domain.FramePing:
		c.enqueue(domain.SignalMessage{Type: domain.FramePong})
	default:
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.enqueue(domain.SignalMessage{Type: domain.FrameError, Message: "invalid frame"})
			return nil
		}
		if err := h.Relay(c, payload); err != nil {
			c.enqueue(domain.SignalMessage{Type: domain.FrameError, Message: "not joined"})
		}
	}
	return nil
}

// Shutdown closes every connection without broadcasting anything
// further.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var open []*Conn
	for c := range h.conns {
		if !c.closed {
			c.closed = true
			open = append(open, c)
		}
		c.roomID = ""
		c.peerID = ""
	}
	h.conns = make(map[*Conn]struct{})
	h.rooms = make(map[string]map[*Conn]struct{})
	h.mu.Unlock()

	for _, c := range open {
		c.closeWith(websocket.CloseGoingAway, "server shutdown")
		close(c.done)
	}
}

// deliver fans a message out to the given snapshot. Delivery failures
// mark the target dead; dead connections are cleaned up only after the
// full pass, so one slow consumer never blocks the rest of the room.
func (h *Hub) deliver(targets []*Conn, message any) {
	var dead []*Conn
	for _, t := range targets {
		if !t.enqueue(message) {
			dead = append(dead, t)
		}
	}

	for _, t := range dead {
		h.mu.Lock()
		peerID := t.peerID
		h.mu.Unlock()
		h.log.Warn("dropping dead connection", slog.String("peer_id", peerID))
		t.closeWith(websocket.CloseGoingAway, "send buffer full")
		h.Disconnect(t)
	}
}

// removeFromRoomLocked takes c out of its current room and returns a
// snapshot of the remaining members. Empty rooms are swept immediately.
// Caller holds h.mu.
func (h *Hub) removeFromRoomLocked(c *Conn) []*Conn {
	if c.roomID == "" {
		return nil
	}
	room, ok := h.rooms[c.roomID]
	if !ok {
		return nil
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.roomID)
		return nil
	}
	remaining := make([]*Conn, 0, len(room))
	for member := range room {
		remaining = append(remaining, member)
	}
	return remaining
}

// roomSnapshotLocked returns the room's members except exclude. Caller
// holds h.mu.
func (h *Hub) roomSnapshotLocked(roomID string, exclude *Conn) []*Conn {
	room, ok := h.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]*Conn, 0, len(room))
	for member := range room {
		if member == exclude {
			continue
		}
		members = append(members, member)
	}
	return members
}
