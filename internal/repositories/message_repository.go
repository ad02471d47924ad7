package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pastelfeed/internal/models"
)

// MessageRepository stores wall messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	Recent(ctx context.Context, limit int) ([]models.Message, error)
}

type GORMMessageRepository struct {
	db *gorm.DB
}

func NewGORMMessageRepository(db *gorm.DB) *GORMMessageRepository {
	return &GORMMessageRepository{db: db}
}

func (r *GORMMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages, newest first, with their authors
// preloaded. Messages whose author is gone have a nil Author.
func (r *GORMMessageRepository) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
