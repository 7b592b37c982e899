package converter

import (
	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/service"
)

type PeerResponse struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Address string            `json:"address"`
	Status  domain.PeerStatus `json:"status"`
	// LastSeenAgo is seconds since the peer was last seen, derived at
	// read time.
	LastSeenAgo float64 `json:"last_seen_ago"`
}

func PeerToAPI(p service.PeerPresence) PeerResponse {
	return PeerResponse{
		ID:          p.ID,
		Name:        p.Name,
		Address:     p.Address,
		Status:      p.Status,
		LastSeenAgo: p.LastSeenAgo.Seconds(),
	}
}

func PeersToAPI(peers []service.PeerPresence) []PeerResponse {
	out := make([]PeerResponse, 0, len(peers))
	for _, p := range peers {
		out = append(out, PeerToAPI(p))
	}
	return out
}
