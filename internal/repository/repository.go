package repository

import (
	"context"
	"errors"
	"time"

	"github.com/apmvoice/peerlink/internal/domain"
)

var (
	ErrPeerNotFound      = errors.New("peer not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session transition")
)

type PeerRepository interface {
	Upsert(ctx context.Context, peer *domain.Peer) error
	GetByID(ctx context.Context, id string) (*domain.Peer, error)
	// List returns peers in insertion order.
	List(ctx context.Context) ([]*domain.Peer, error)
	UpdateStatus(ctx context.Context, id string, status domain.PeerStatus, now time.Time) error
	// EnsureLocal returns the local peer record, creating it exactly
	// once per store lifetime.
	EnsureLocal(ctx context.Context, name string, now time.Time) (*domain.Peer, error)
	Count(ctx context.Context) (int64, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Transition moves the session forward along the state machine and
	// fails with ErrInvalidTransition when attempted out of order. The
	// check-and-update is atomic per session id.
	Transition(ctx context.Context, id string, status domain.SessionStatus, now time.Time) (*domain.Session, error)
	// UpdateStatus overwrites the status unconditionally. Kept for the
	// legacy blind-overwrite mode.
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus, now time.Time) (*domain.Session, error)
	// MarkStale transitions every calling/ringing session with no
	// status change for longer than timeout to "timeout".
	MarkStale(ctx context.Context, timeout time.Duration, now time.Time) (int64, error)
	// Purge deletes terminal sessions whose last update is older than
	// the retention window.
	Purge(ctx context.Context, retention time.Duration, now time.Time) (int64, error)
}
