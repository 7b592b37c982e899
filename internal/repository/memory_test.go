package repository

import (
	"context"
	"testing"
	"time"

	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPeerRepositoryListInsertionOrder(t *testing.T) {
	repo := NewInMemoryPeerRepository()
	ctx := context.Background()

	first := domain.NewPeer("Alice Cooper", "192.168.1.101", domain.PeerStatusOnline, testBase)
	second := domain.NewPeer("Bob Martinez", "192.168.1.102", domain.PeerStatusOnline, testBase)
	third := domain.NewPeer("Carol Zhang", "192.168.1.103", domain.PeerStatusAway, testBase)

	require.NoError(t, repo.Upsert(ctx, first))
	require.NoError(t, repo.Upsert(ctx, second))
	require.NoError(t, repo.Upsert(ctx, third))

	// Re-upserting must not change the position.
	second.Status = domain.PeerStatusBusy
	require.NoError(t, repo.Upsert(ctx, second))

	peers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, peers, 3)
	assert.Equal(t, first.ID, peers[0].ID)
	assert.Equal(t, second.ID, peers[1].ID)
	assert.Equal(t, third.ID, peers[2].ID)
	assert.Equal(t, domain.PeerStatusBusy, peers[1].Status)
}

func TestPeerRepositoryGetNotFound(t *testing.T) {
	repo := NewInMemoryPeerRepository()

	_, err := repo.GetByID(context.Background(), "peer-missing")
	assert.ErrorIs(t, err, ErrPeerNotFound)

	err = repo.UpdateStatus(context.Background(), "peer-missing", domain.PeerStatusAway, testBase)
	assert.ErrorIs(t, err, ErrPeerNotFound)
}

func TestPeerRepositoryEnsureLocalIdempotent(t *testing.T) {
	repo := NewInMemoryPeerRepository()
	ctx := context.Background()

	first, err := repo.EnsureLocal(ctx, "You", testBase)
	require.NoError(t, err)
	assert.Contains(t, first.ID, "local-")
	assert.Equal(t, domain.PeerStatusOnline, first.Status)

	second, err := repo.EnsureLocal(ctx, "You", testBase.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSessionRepositoryTransition(t *testing.T) {
	repo := NewInMemorySessionRepository()
	ctx := context.Background()

	session := domain.NewSession("peer-abc123", testBase)
	require.NoError(t, repo.Create(ctx, session))

	connected, err := repo.Transition(ctx, session.ID, domain.SessionStatusConnected, testBase.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConnected, connected.Status)
	assert.True(t, connected.UpdatedAt.After(connected.CreatedAt))

	// Connected sessions cannot go back to ringing.
	_, err = repo.Transition(ctx, session.ID, domain.SessionStatusRinging, testBase.Add(2*time.Second))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	ended, err := repo.Transition(ctx, session.ID, domain.SessionStatusEnded, testBase.Add(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusEnded, ended.Status)

	// No transition is defined out of a terminal state.
	_, err = repo.Transition(ctx, session.ID, domain.SessionStatusConnected, testBase.Add(4*time.Second))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionRepositoryTransitionNotFound(t *testing.T) {
	repo := NewInMemorySessionRepository()

	_, err := repo.Transition(context.Background(), "session-missing", domain.SessionStatusEnded, testBase)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRepositoryUpdateStatusBlindOverwrite(t *testing.T) {
	repo := NewInMemorySessionRepository()
	ctx := context.Background()

	session := domain.NewSession("peer-abc123", testBase)
	require.NoError(t, repo.Create(ctx, session))

	_, err := repo.UpdateStatus(ctx, session.ID, domain.SessionStatusEnded, testBase.Add(time.Second))
	require.NoError(t, err)

	// Blind overwrite permits the legacy ended -> connected move.
	reopened, err := repo.UpdateStatus(ctx, session.ID, domain.SessionStatusConnected, testBase.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConnected, reopened.Status)
}

func TestSessionRepositoryMarkStale(t *testing.T) {
	repo := NewInMemorySessionRepository()
	ctx := context.Background()
	timeout := 30 * time.Second

	stale := domain.NewSession("peer-a", testBase)
	fresh := domain.NewSession("peer-b", testBase.Add(20*time.Second))
	accepted := domain.NewSession("peer-c", testBase)
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, accepted))

	_, err := repo.Transition(ctx, accepted.ID, domain.SessionStatusConnected, testBase.Add(time.Second))
	require.NoError(t, err)

	now := testBase.Add(timeout + time.Second)
	count, err := repo.MarkStale(ctx, timeout, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusTimeout, got.Status)
	assert.Equal(t, now, got.UpdatedAt)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCalling, got.Status)

	// Accept suppresses the timeout.
	got, err = repo.GetByID(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusConnected, got.Status)

	// Idempotent: a second sweep finds nothing new.
	count, err = repo.MarkStale(ctx, timeout, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestSessionRepositoryPurge(t *testing.T) {
	repo := NewInMemorySessionRepository()
	ctx := context.Background()
	retention := 10 * time.Minute

	old := domain.NewSession("peer-a", testBase)
	recent := domain.NewSession("peer-b", testBase)
	active := domain.NewSession("peer-c", testBase)
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, recent))
	require.NoError(t, repo.Create(ctx, active))

	_, err := repo.Transition(ctx, old.ID, domain.SessionStatusEnded, testBase)
	require.NoError(t, err)
	_, err = repo.Transition(ctx, recent.ID, domain.SessionStatusEnded, testBase.Add(5*time.Minute))
	require.NoError(t, err)

	now := testBase.Add(retention + time.Second)
	count, err := repo.Purge(ctx, retention, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = repo.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Within retention and non-terminal sessions survive.
	_, err = repo.GetByID(ctx, recent.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, active.ID)
	assert.NoError(t, err)
}
