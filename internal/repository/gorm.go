package repository

import (
	"context"
	"errors"
	"time"

	"github.com/apmvoice/peerlink/internal/domain"
	"github.com/apmvoice/peerlink/internal/repository/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const localPeerKey = "local_peer_id"

type GormPeerRepository struct {
	db *gorm.DB
}

func NewGormPeerRepository(db *gorm.DB) *GormPeerRepository {
	return &GormPeerRepository{db: db}
}

func (r *GormPeerRepository) Upsert(ctx context.Context, peer *domain.Peer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if peer == nil {
		return errors.New("peer is nil")
	}

	peerModel := toModelPeer(peer)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "peer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address", "status", "last_seen", "updated_at"}),
	}).Create(peerModel).Error
}

func (r *GormPeerRepository) GetByID(ctx context.Context, id string) (*domain.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var peer model.Peer
	err := r.db.WithContext(ctx).First(&peer, "peer_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeerNotFound
		}
		return nil, err
	}

	return toDomainPeer(&peer), nil
}

func (r *GormPeerRepository) List(ctx context.Context) ([]*domain.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var peers []model.Peer
	if err := r.db.WithContext(ctx).Order("seq").Find(&peers).Error; err != nil {
		return nil, err
	}

	result := make([]*domain.Peer, 0, len(peers))
	for i := range peers {
		result = append(result, toDomainPeer(&peers[i]))
	}

	return result, nil
}

func (r *GormPeerRepository) UpdateStatus(ctx context.Context, id string, status domain.PeerStatus, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&model.Peer{}).
		Where("peer_id = ?", id).
		Updates(map[string]any{
			"status":    string(status),
			"last_seen": now.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPeerNotFound
	}
	return nil
}

func (r *GormPeerRepository) EnsureLocal(ctx context.Context, name string, now time.Time) (*domain.Peer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *domain.Peer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meta model.Metadata
		err := tx.First(&meta, "key = ?", localPeerKey).Error
		if err == nil {
			var peer model.Peer
			if err := tx.First(&peer, "peer_id = ?", meta.Value).Error; err == nil {
				result = toDomainPeer(&peer)
				return nil
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		local := domain.NewLocalPeer(name, now)
		if err := tx.Create(toModelPeer(local)).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&model.Metadata{Key: localPeerKey, Value: local.ID}).Error; err != nil {
			return err
		}

		result = local
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *GormPeerRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Peer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil {
		return errors.New("session is nil")
	}

	return r.db.WithContext(ctx).Create(toModelSession(session)).Error
}

func (r *GormSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session model.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return toDomainSession(&session), nil
}

// Transition is a single conditional UPDATE guarded by the allowed
// predecessor states, so concurrent transitions on the same id cannot
// interleave.
func (r *GormSessionRepository) Transition(ctx context.Context, id string, status domain.SessionStatus, now time.Time) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	from := statusStrings(domain.AllowedPredecessors(status))
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumns(map[string]any{
			"status":     string(status),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing session from an out-of-order attempt.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInvalidTransition
	}

	return r.GetByID(ctx, id)
}

func (r *GormSessionRepository) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus, now time.Time) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":     string(status),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrSessionNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *GormSessionRepository) MarkStale(ctx context.Context, timeout time.Duration, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pending := statusStrings([]domain.SessionStatus{
		domain.SessionStatusCalling,
		domain.SessionStatusRinging,
	})
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("status IN ? AND updated_at <= ?", pending, now.UTC().Add(-timeout)).
		UpdateColumns(map[string]any{
			"status":     string(domain.SessionStatusTimeout),
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) Purge(ctx context.Context, retention time.Duration, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	terminal := statusStrings([]domain.SessionStatus{
		domain.SessionStatusEnded,
		domain.SessionStatusTimeout,
	})
	res := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at <= ?", terminal, now.UTC().Add(-retention)).
		Delete(&model.Session{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func statusStrings(statuses []domain.SessionStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func toModelPeer(peer *domain.Peer) *model.Peer {
	return &model.Peer{
		PeerID:   peer.ID,
		Name:     peer.Name,
		Address:  peer.Address,
		Status:   string(peer.Status),
		LastSeen: peer.LastSeen.UTC(),
	}
}

func toDomainPeer(peer *model.Peer) *domain.Peer {
	return &domain.Peer{
		ID:       peer.PeerID,
		Name:     peer.Name,
		Address:  peer.Address,
		Status:   domain.PeerStatus(peer.Status),
		LastSeen: peer.LastSeen.UTC(),
	}
}

func toModelSession(session *domain.Session) *model.Session {
	return &model.Session{
		ID:        session.ID,
		PeerID:    session.PeerID,
		Status:    string(session.Status),
		CreatedAt: session.CreatedAt.UTC(),
		UpdatedAt: session.UpdatedAt.UTC(),
	}
}

func toDomainSession(session *model.Session) *domain.Session {
	return &domain.Session{
		ID:        session.ID,
		PeerID:    session.PeerID,
		Status:    domain.SessionStatus(session.Status),
		CreatedAt: session.CreatedAt.UTC(),
		UpdatedAt: session.UpdatedAt.UTC(),
	}
}
