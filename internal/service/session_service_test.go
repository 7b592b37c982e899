package service

import (
	"context"
	"testing"
	"time"

	"github.com/apmvoice/peerlink/internal/clock"
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCallTimeout = 30 * time.Second
	testRetention   = 10 * time.Minute
)

func newSessionFixture(t *testing.T, blindOverwrite bool) (*SessionService, *PeerService, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	peerRepo := repository.NewInMemoryPeerRepository()
	sessionRepo := repository.NewInMemorySessionRepository()

	peers := NewPeerService(peerRepo, clk, "You", nil)
	sessions := NewSessionService(sessionRepo, peerRepo, clk, testCallTimeout, testRetention, blindOverwrite, nil)
	return sessions, peers, clk
}

func createPeer(t *testing.T, peers *PeerService, name string) *domain.Peer {
	t.Helper()

	peer := domain.NewPeer(name, "192.168.1.50", domain.PeerStatusOnline, time.Now().UTC())
	// Upsert through the repository the service shares.
	require.NoError(t, peers.peers.Upsert(context.Background(), peer))
	return peer
}

func TestCreateSessionUnknownPeer(t *testing.T) {
	sessions, _, _ := newSessionFixture(t, false)

	_, err := sessions.CreateSession(context.Background(), "peer-missing")
	assert.ErrorIs(t, err, repository.ErrPeerNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	sessions, peers, clk := newSessionFixture(t, false)
	ctx := context.Background()
	peer := createPeer(t, peers, "Alice Cooper")

	session, err := sessions.CreateSession(ctx, peer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCalling, session.Status)
	assert.Equal(t, session.CreatedAt, session.UpdatedAt)

	accepted, err := sessions.AcceptSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConnected, accepted.Status)

	// Accept suppresses the timeout sweep; the session keeps reading
	// as connected.
	clk.Advance(testCallTimeout - time.Second)
	got, err := sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConnected, got.Status)

	ended, err := sessions.EndSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusEnded, ended.Status)

	clk.Advance(testRetention + time.Second)
	purged, err := sessions.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = sessions.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestSessionNeverAcceptedTimesOut(t *testing.T) {
	sessions, peers, clk := newSessionFixture(t, false)
	ctx := context.Background()
	peer := createPeer(t, peers, "Bob Martinez")

	session, err := sessions.CreateSession(ctx, peer.ID)
	require.NoError(t, err)

	clk.Advance(testCallTimeout + time.Second)

	marked, err := sessions.MarkStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	got, err := sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusTimeout, got.Status)

	// Re-invoking is a no-op on already-terminal sessions.
	marked, err = sessions.MarkStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, marked)
}

func TestGetSessionReadTimeTimeout(t *testing.T) {
	sessions, peers, clk := newSessionFixture(t, false)
	ctx := context.Background()
	peer := createPeer(t, peers, "Carol Zhang")

	session, err := sessions.CreateSession(ctx, peer.ID)
	require.NoError(t, err)

	// A stale session surfaces as timeout on read, without waiting for
	// the housekeeping sweep.
	clk.Advance(testCallTimeout + time.Second)
	got, err := sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusTimeout, got.Status)
}

func TestTransitionOutOfTerminalRejected(t *testing.T) {
	sessions, peers, _ := newSessionFixture(t, false)
	ctx := context.Background()
	peer := createPeer(t, peers, "Alice Cooper")

	session, err := sessions.CreateSession(ctx, peer.ID)
	require.NoError(t, err)

	_, err = sessions.EndSession(ctx, session.ID)
	require.NoError(t, err)

	_, err = sessions.AcceptSession(ctx, session.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidTransition)
}

func TestBlindOverwritePermitsLegacyTransitions(t *testing.T) {
	sessions, peers, _ := newSessionFixture(t, true)
	ctx := context.Background()
	peer := createPeer(t, peers, "Alice Cooper")

	session, err := sessions.CreateSession(ctx, peer.ID)
	require.NoError(t, err)

	_, err = sessions.EndSession(ctx, session.ID)
	require.NoError(t, err)

	// The reference behavior allowed ended -> connected.
	reopened, err := sessions.AcceptSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConnected, reopened.Status)
}
