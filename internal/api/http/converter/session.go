package converter

import (
	"time"

	"github.com/apmvoice/peerlink/internal/domain"
)

type SessionResponse struct {
	ID        string               `json:"id"`
	PeerID    string               `json:"peer_id"`
	Status    domain.SessionStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func SessionToAPI(s *domain.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		PeerID:    s.PeerID,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
