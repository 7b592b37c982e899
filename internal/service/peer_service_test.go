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

func newPeerFixture(t *testing.T) (*PeerService, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := repository.NewInMemoryPeerRepository()
	return NewPeerService(repo, clk, "You", nil), clk
}

func TestListPeersDerivesLastSeenAgo(t *testing.T) {
	peers, clk := newPeerFixture(t)
	ctx := context.Background()

	_, err := peers.EnsureLocal(ctx)
	require.NoError(t, err)

	clk.Advance(42 * time.Second)

	listed, err := peers.ListPeers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 42*time.Second, listed[0].LastSeenAgo)
}

func TestUpdateLocalStatus(t *testing.T) {
	peers, clk := newPeerFixture(t)
	ctx := context.Background()

	local, err := peers.EnsureLocal(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PeerStatusOnline, local.Status)

	clk.Advance(time.Minute)

	updated, err := peers.UpdateLocalStatus(ctx, domain.PeerStatusBusy)
	require.NoError(t, err)
	assert.Equal(t, local.ID, updated.ID)
	assert.Equal(t, domain.PeerStatusBusy, updated.Status)

	// The status push refreshes last_seen.
	listed, err := peers.ListPeers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, time.Duration(0), listed[0].LastSeenAgo)
}

func TestUpdateLocalStatusRejectsUnknown(t *testing.T) {
	peers, _ := newPeerFixture(t)

	_, err := peers.UpdateLocalStatus(context.Background(), domain.PeerStatus("sleeping"))
	assert.Error(t, err)
}

func TestSeedDemoPeersOnlyWhenEmpty(t *testing.T) {
	peers, _ := newPeerFixture(t)
	ctx := context.Background()

	require.NoError(t, peers.SeedDemoPeers(ctx))

	listed, err := peers.ListPeers(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 4) // local + three starters

	// Second call is a no-op.
	require.NoError(t, peers.SeedDemoPeers(ctx))
	listed, err = peers.ListPeers(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 4)
}
