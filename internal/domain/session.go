package domain

import "time"

type SessionStatus string

const (
	SessionStatusCalling   SessionStatus = "calling"
	SessionStatusRinging   SessionStatus = "ringing"
	SessionStatusConnected SessionStatus = "connected"
	SessionStatusEnded     SessionStatus = "ended"
	SessionStatusTimeout   SessionStatus = "timeout"
)

// Terminal reports whether no further transition is defined out of s.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusEnded || s == SessionStatusTimeout
}

// Pending reports whether the session is still waiting for the callee.
func (s SessionStatus) Pending() bool {
	return s == SessionStatusCalling || s == SessionStatusRinging
}

// Session represents one call attempt between the local participant
// and a peer.
type Session struct {
	ID        string
	PeerID    string
	Status    SessionStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(peerID string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:        randomID("session-", 10),
		PeerID:    peerID,
		Status:    SessionStatusCalling,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AllowedPredecessors lists the states a session may be in for a
// transition into "to" to be valid. The state machine only moves
// forward: calling -> ringing -> connected -> ended, with timeout
// reachable from calling/ringing and ended reachable from any
// non-terminal state.
func AllowedPredecessors(to SessionStatus) []SessionStatus {
	switch to {
	case SessionStatusRinging:
		return []SessionStatus{SessionStatusCalling}
	case SessionStatusConnected:
		return []SessionStatus{SessionStatusCalling, SessionStatusRinging}
	case SessionStatusEnded:
		return []SessionStatus{SessionStatusCalling, SessionStatusRinging, SessionStatusConnected}
	case SessionStatusTimeout:
		return []SessionStatus{SessionStatusCalling, SessionStatusRinging}
	}
	return nil
}

func CanTransition(from, to SessionStatus) bool {
	for _, s := range AllowedPredecessors(to) {
		if s == from {
			return true
		}
	}
	return false
}
