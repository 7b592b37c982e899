package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/apmvoice/peerlink/internal/clock"
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/repository"
	"github.com/apmvoice/peerlink/lib/logger/sl"
)

type SessionService struct {
	sessions repository.SessionRepository
	peers    repository.PeerRepository
	clk      clock.Clock
	log      *slog.Logger

	callTimeout    time.Duration
	purgeRetention time.Duration
	// blindOverwrite restores the reference behavior where accept/end
	// overwrite the status regardless of the state machine.
	blindOverwrite bool
}

func NewSessionService(
	sessions repository.SessionRepository,
	peers repository.PeerRepository,
	clk clock.Clock,
	callTimeout time.Duration,
	purgeRetention time.Duration,
	blindOverwrite bool,
	log *slog.Logger,
) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{
		sessions:       sessions,
		peers:          peers,
		clk:            clk,
		log:            log,
		callTimeout:    callTimeout,
		purgeRetention: purgeRetention,
		blindOverwrite: blindOverwrite,
	}
}

// CreateSession starts a call attempt against a known peer. The peer
// reference is validated here only, not on later transitions.
func (s *SessionService) CreateSession(ctx context.Context, peerID string) (*domain.Session, error) {
	const op = "service.session.create"
	log := s.log.With(slog.String("op", op), slog.String("peer_id", peerID))

	if _, err := s.peers.GetByID(ctx, peerID); err != nil {
		return nil, err
	}

	session := domain.NewSession(peerID, s.clk.Now())
	if err := s.sessions.Create(ctx, session); err != nil {
		log.Error("create failed", sl.Err(err))
		return nil, err
	}

	log.Info("session created", slog.String("session_id", session.ID))
	return session, nil
}

// GetSession reads a session, surfacing a stale calling/ringing session
// as status=timeout rather than waiting for the next housekeeping tick.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	if session.Status.Pending() && now.Sub(session.UpdatedAt) > s.callTimeout {
		timed, err := s.sessions.Transition(ctx, id, domain.SessionStatusTimeout, now)
		if err != nil {
			// Lost a race with a concurrent transition; re-read.
			if errors.Is(err, repository.ErrInvalidTransition) {
				return s.sessions.GetByID(ctx, id)
			}
			return nil, err
		}
		return timed, nil
	}

	return session, nil
}

func (s *SessionService) AcceptSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.transition(ctx, id, domain.SessionStatusConnected)
}

func (s *SessionService) EndSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.transition(ctx, id, domain.SessionStatusEnded)
}

func (s *SessionService) transition(ctx context.Context, id string, status domain.SessionStatus) (*domain.Session, error) {
	const op = "service.session.transition"
	log := s.log.With(
		slog.String("op", op),
		slog.String("session_id", id),
		slog.String("to", string(status)),
	)

	now := s.clk.Now()

	var (
		session *domain.Session
		err     error
	)
	if s.blindOverwrite {
		session, err = s.sessions.UpdateStatus(ctx, id, status, now)
	} else {
		session, err = s.sessions.Transition(ctx, id, status, now)
	}
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			log.Warn("transition rejected", sl.Err(err))
		}
		return nil, err
	}

	log.Info("session transitioned")
	return session, nil
}

func (s *SessionService) MarkStale(ctx context.Context) (int64, error) {
	return s.sessions.MarkStale(ctx, s.callTimeout, s.clk.Now())
}

func (s *SessionService) Purge(ctx context.Context) (int64, error) {
	return s.sessions.Purge(ctx, s.purgeRetention, s.clk.Now())
}
