package housekeeping

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apmvoice/peerlink/internal/service"
	"github.com/apmvoice/peerlink/internal/signaling"
	"github.com/apmvoice/peerlink/lib/logger/sl"
)

// Sweeper periodically drives session-store maintenance (stale-marking,
// purge) and hub maintenance (stale-connection eviction). Sweeps are
// predicate-based and idempotent, so a skipped or delayed tick loses
// nothing; failures are logged and retried on the next tick.
type Sweeper struct {
	sessions service.SessionInteractor
	hub      *signaling.Hub
	interval time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

func NewSweeper(sessions service.SessionInteractor, hub *signaling.Hub, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		sessions: sessions,
		hub:      hub,
		interval: interval,
		log:      log,
	}
}

// Start launches the sweep loop. It observes ctx between ticks and
// stops without a further sweep once ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop waits for the in-flight tick to finish, bounded by timeout.
func (s *Sweeper) Stop(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("housekeeping stop timed out")
	}
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	marked, err := s.sessions.MarkStale(ctx)
	if err != nil {
		s.log.Error("stale sweep failed", sl.Err(err))
	} else if marked > 0 {
		s.log.Info("sessions timed out", slog.Int64("count", marked))
	}

	purged, err := s.sessions.Purge(ctx)
	if err != nil {
		s.log.Error("purge sweep failed", sl.Err(err))
	} else if purged > 0 {
		s.log.Info("sessions purged", slog.Int64("count", purged))
	}

	if s.hub != nil {
		if evicted := s.hub.SweepStale(); evicted > 0 {
			s.log.Info("stale connections evicted", slog.Int("count", evicted))
		}
	}
}
