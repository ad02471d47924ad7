package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pastelfeed/internal/common"
	"pastelfeed/internal/models"
)

// SavedItemRepository stores per-user bookmarks. Every read and delete is
// scoped to the owner.
type SavedItemRepository interface {
	Create(ctx context.Context, item *models.SavedItem) error
	ListByUser(ctx context.Context, userID uint) ([]models.SavedItem, error)
	Delete(ctx context.Context, userID, id uint) error
}

type GORMSavedItemRepository struct {
	db *gorm.DB
}

func NewGORMSavedItemRepository(db *gorm.DB) *GORMSavedItemRepository {
	return &GORMSavedItemRepository{db: db}
}

func (r *GORMSavedItemRepository) Create(ctx context.Context, item *models.SavedItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create saved item: %w", err)
	}
	return nil
}

func (r *GORMSavedItemRepository) ListByUser(ctx context.Context, userID uint) ([]models.SavedItem, error) {
	items := []models.SavedItem{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list saved items: %w", err)
	}
	return items, nil
}

// Delete removes the item only when userID owns it.
func (r *GORMSavedItemRepository) Delete(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.SavedItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete saved item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NotFound("Item not found or not owned by user")
	}
	return nil
}
