package service

import (
	"context"
	"time"

	"github.com/apmvoice/peerlink/internal/domain"
)

// PeerPresence is a peer record with its derived staleness, computed
// at read time and never stored.
type PeerPresence struct {
	*domain.Peer
	LastSeenAgo time.Duration
}

type PeerInteractor interface {
	ListPeers(ctx context.Context) ([]PeerPresence, error)
	GetPeer(ctx context.Context, id string) (*domain.Peer, error)
	UpdateLocalStatus(ctx context.Context, status domain.PeerStatus) (*domain.Peer, error)
	EnsureLocal(ctx context.Context) (*domain.Peer, error)
	SeedDemoPeers(ctx context.Context) error
}

type SessionInteractor interface {
	CreateSession(ctx context.Context, peerID string) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	AcceptSession(ctx context.Context, id string) (*domain.Session, error)
	EndSession(ctx context.Context, id string) (*domain.Session, error)
	MarkStale(ctx context.Context) (int64, error)
	Purge(ctx context.Context) (int64, error)
}
