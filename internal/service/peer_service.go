package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/apmvoice/peerlink/internal/clock"
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/repository"
	"github.com/apmvoice/peerlink/lib/logger/sl"
)

type PeerService struct {
	peers     repository.PeerRepository
	clk       clock.Clock
	log       *slog.Logger
	localName string
}

func NewPeerService(peers repository.PeerRepository, clk clock.Clock, localName string, log *slog.Logger) *PeerService {
	if log == nil {
		log = slog.Default()
	}
	return &PeerService{
		peers:     peers,
		clk:       clk,
		log:       log,
		localName: localName,
	}
}

func (s *PeerService) ListPeers(ctx context.Context) ([]PeerPresence, error) {
	peers, err := s.peers.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	result := make([]PeerPresence, 0, len(peers))
	for _, peer := range peers {
		ago := now.Sub(peer.LastSeen)
		if ago < 0 {
			ago = 0
		}
		result = append(result, PeerPresence{Peer: peer, LastSeenAgo: ago})
	}
	return result, nil
}

func (s *PeerService) GetPeer(ctx context.Context, id string) (*domain.Peer, error) {
	return s.peers.GetByID(ctx, id)
}

// UpdateLocalStatus pushes a new presence status onto the local peer
// record and refreshes its last-seen timestamp.
func (s *PeerService) UpdateLocalStatus(ctx context.Context, status domain.PeerStatus) (*domain.Peer, error) {
	const op = "service.peer.updateLocalStatus"
	log := s.log.With(slog.String("op", op), slog.String("status", string(status)))

	if !status.Valid() {
		return nil, errors.New("unknown peer status: " + string(status))
	}

	local, err := s.peers.EnsureLocal(ctx, s.localName, s.clk.Now())
	if err != nil {
		log.Error("ensure local failed", sl.Err(err))
		return nil, err
	}

	now := s.clk.Now()
	if err := s.peers.UpdateStatus(ctx, local.ID, status, now); err != nil {
		log.Error("status update failed", sl.Err(err))
		return nil, err
	}

	local.Status = status
	local.LastSeen = now.UTC()
	return local, nil
}

func (s *PeerService) EnsureLocal(ctx context.Context) (*domain.Peer, error) {
	return s.peers.EnsureLocal(ctx, s.localName, s.clk.Now())
}

// SeedDemoPeers populates an empty registry with a few starter peers so
// a fresh install has something to show. No-op when peers exist.
func (s *PeerService) SeedDemoPeers(ctx context.Context) error {
	const op = "service.peer.seedDemoPeers"
	log := s.log.With(slog.String("op", op))

	count, err := s.peers.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := s.peers.EnsureLocal(ctx, s.localName, s.clk.Now()); err != nil {
		return err
	}

	now := s.clk.Now()
	starter := []*domain.Peer{
		domain.NewPeer("Alice Cooper", "192.168.1.101", domain.PeerStatusOnline, now),
		domain.NewPeer("Bob Martinez", "192.168.1.102", domain.PeerStatusOnline, now),
		domain.NewPeer("Carol Zhang", "192.168.1.103", domain.PeerStatusAway, now),
	}
	for _, peer := range starter {
		if err := s.peers.Upsert(ctx, peer); err != nil {
			log.Error("seed upsert failed", sl.Err(err))
			return err
		}
	}

	log.Info("seeded demo peers", slog.Int("count", len(starter)))
	return nil
}
