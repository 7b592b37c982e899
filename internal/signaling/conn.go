package signaling

import (
	"time"

	"github.com/apmvoice/peerlink/lib/logger/sl"
	"github.com/gorilla/websocket"
)

const (
	// Maximum message size allowed from a peer. Large enough for SDP
	// offers with many candidates.
	maxMessageSize = 64 * 1024

	sendBufferSize = 32
)

// Conn wraps a single websocket connection managed by the hub. The
// send channel decouples broadcasts from the transport: the write pump
// is the only writer on the socket, and a full buffer is treated as
// connection death rather than a reason to block the sender.
type Conn struct {
	hub    *Hub
	socket *websocket.Conn
	send   chan any
	done   chan struct{}

	// Guarded by hub.mu.
	roomID   string
	peerID   string
	lastSeen time.Time
	closed   bool
}

// PeerID returns the identity recorded at join time, or "" before join.
func (c *Conn) PeerID() string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.peerID
}

func (c *Conn) enqueue(message any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Conn) closeWith(code int, reason string) {
	if c.socket == nil {
		return
	}
	deadline := time.Now().Add(c.hub.cfg.WriteWait)
	_ = c.socket.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.socket.Close()
}

// ReadPump pumps frames from the websocket into the hub. It is the only
// reader on the connection and runs in a per-connection goroutine.
func (c *Conn) ReadPump() {
	defer c.hub.Disconnect(c)

	pongWait := c.hub.cfg.StaleTimeout
	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		c.hub.Touch(c)
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Debug("websocket read failed", sl.Err(err))
			}
			return
		}
		if err := c.hub.HandleFrame(c, raw); err != nil {
			return
		}
	}
}

// WritePump pumps outbound messages and heartbeat pings onto the
// websocket. It is the only writer on the connection.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		if c.socket != nil {
			_ = c.socket.Close()
		}
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
