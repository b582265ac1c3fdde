package repository

import (
	"context"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"gorm.io/gorm"
)

type TrackingRepository interface {
	Append(ctx context.Context, ev *model.TrackingEvent) error
	ListByOrder(ctx context.Context, orderID uint64) ([]model.TrackingEvent, error)
}

type trackingRepository struct {
	db *gorm.DB
}

func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) Append(ctx context.Context, ev *model.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

func (r *trackingRepository) ListByOrder(ctx context.Context, orderID uint64) ([]model.TrackingEvent, error) {
	var list []model.TrackingEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
