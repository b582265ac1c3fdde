package repository

import (
	"context"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"gorm.io/gorm"
)

type ChatRepository interface {
	Append(ctx context.Context, msg *model.ChatMessage) error

	// ListSince returns messages with id > sinceID in ascending id order. The
	// id cursor, not a timestamp, is what makes polling gap-free.
	ListSince(ctx context.Context, orderID, sinceID uint64) ([]model.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Append(ctx context.Context, msg *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) ListSince(ctx context.Context, orderID, sinceID uint64) ([]model.ChatMessage, error) {
	var list []model.ChatMessage
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND id > ?", orderID, sinceID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
