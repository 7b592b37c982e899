package repository

import (
	"context"
	"sync"
	"time"

	"github.com/apmvoice/peerlink/internal/domain"
)

type InMemoryPeerRepository struct {
	mu      sync.RWMutex
	peers   map[string]*domain.Peer
	order   []string
	localID string
}

func NewInMemoryPeerRepository() *InMemoryPeerRepository {
	return &InMemoryPeerRepository{
		peers: make(map[string]*domain.Peer),
	}
}

func (r *InMemoryPeerRepository) Upsert(ctx context.Context, peer *domain.Peer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[peer.ID]; !ok {
		r.order = append(r.order, peer.ID)
	}
	cp := *peer
	r.peers[peer.ID] = &cp
	return nil
}

func (r *InMemoryPeerRepository) GetByID(ctx context.Context, id string) (*domain.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.peers[id]
	if !ok {
		return nil, ErrPeerNotFound
	}

	cp := *peer
	return &cp, nil
}

func (r *InMemoryPeerRepository) List(ctx context.Context) ([]*domain.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Peer, 0, len(r.order))
	for _, id := range r.order {
		if peer, ok := r.peers[id]; ok {
			cp := *peer
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *InMemoryPeerRepository) UpdateStatus(ctx context.Context, id string, status domain.PeerStatus, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	peer, ok := r.peers[id]
	if !ok {
		return ErrPeerNotFound
	}

	peer.Status = status
	peer.LastSeen = now.UTC()
	return nil
}

func (r *InMemoryPeerRepository) EnsureLocal(ctx context.Context, name string, now time.Time) (*domain.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.localID != "" {
		if peer, ok := r.peers[r.localID]; ok {
			cp := *peer
			return &cp, nil
		}
	}

	local := domain.NewLocalPeer(name, now)
	r.peers[local.ID] = local
	r.order = append(r.order, local.ID)
	r.localID = local.ID

	cp := *local
	return &cp, nil
}

func (r *InMemoryPeerRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.peers)), nil
}

type InMemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *InMemorySessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	cp := *session
	return &cp, nil
}

func (r *InMemorySessionRepository) Transition(ctx context.Context, id string, status domain.SessionStatus, now time.Time) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !domain.CanTransition(session.Status, status) {
		return nil, ErrInvalidTransition
	}

	session.Status = status
	session.UpdatedAt = now.UTC()

	cp := *session
	return &cp, nil
}

func (r *InMemorySessionRepository) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus, now time.Time) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	session.Status = status
	session.UpdatedAt = now.UTC()

	cp := *session
	return &cp, nil
}

func (r *InMemorySessionRepository) MarkStale(ctx context.Context, timeout time.Duration, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := now.UTC().Add(-timeout)
	var count int64
	for _, session := range r.sessions {
		if session.Status.Pending() && !session.UpdatedAt.After(threshold) {
			session.Status = domain.SessionStatusTimeout
			session.UpdatedAt = now.UTC()
			count++
		}
	}
	return count, nil
}

func (r *InMemorySessionRepository) Purge(ctx context.Context, retention time.Duration, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	threshold := now.UTC().Add(-retention)
	var count int64
	for id, session := range r.sessions {
		if session.Status.Terminal() && !session.UpdatedAt.After(threshold) {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}
