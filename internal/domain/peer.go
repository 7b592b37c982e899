package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PeerStatus string

const (
	PeerStatusOnline  PeerStatus = "online"
	PeerStatusAway    PeerStatus = "away"
	PeerStatusBusy    PeerStatus = "busy"
	PeerStatusOffline PeerStatus = "offline"
)

func (s PeerStatus) Valid() bool {
	switch s {
	case PeerStatusOnline, PeerStatusAway, PeerStatusBusy, PeerStatusOffline:
		return true
	}
	return false
}

// Peer represents a network participant with a presence status,
// independent of any call.
type Peer struct {
	ID       string
	Name     string
	Address  string
	Status   PeerStatus
	LastSeen time.Time
}

func NewPeer(name, address string, status PeerStatus, now time.Time) *Peer {
	return &Peer{
		ID:       randomID("peer-", 6),
		Name:     name,
		Address:  address,
		Status:   status,
		LastSeen: now.UTC(),
	}
}

// NewLocalPeer constructs the record for the process's own identity.
func NewLocalPeer(name string, now time.Time) *Peer {
	if name == "" {
		name = "You"
	}
	return &Peer{
		ID:       randomID("local-", 8),
		Name:     name,
		Address:  "127.0.0.1",
		Status:   PeerStatusOnline,
		LastSeen: now.UTC(),
	}
}

func randomID(prefix string, length int) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	if length > len(hex) {
		length = len(hex)
	}
	return prefix + hex[:length]
}
