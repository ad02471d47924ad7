package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pastelfeed/internal/common"
	"pastelfeed/internal/models"
)

// UploadedImageRepository keeps the latest upload per (user, purpose).
type UploadedImageRepository interface {
	Upsert(ctx context.Context, img *models.UploadedImage) (previous *models.UploadedImage, err error)
	GetByUserAndPurpose(ctx context.Context, userID uint, purpose string) (*models.UploadedImage, error)
}

type GORMUploadedImageRepository struct {
	db *gorm.DB
}

func NewGORMUploadedImageRepository(db *gorm.DB) *GORMUploadedImageRepository {
	return &GORMUploadedImageRepository{db: db}
}

// Upsert replaces any record for the same owner and purpose and returns the
// one it replaced, or nil.
func (r *GORMUploadedImageRepository) Upsert(ctx context.Context, img *models.UploadedImage) (*models.UploadedImage, error) {
	var previous *models.UploadedImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.UploadedImage
		err := tx.Where("user_id = ? AND purpose = ?", img.UserID, img.Purpose).First(&old).Error
		switch {
		case err == nil:
			previous = &old
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "purpose"}},
			DoUpdates: clause.AssignmentColumns([]string{"filename", "path", "url", "created_at"}),
		}).Create(img).Error
		if err != nil {
			return err
		}
		var stored models.UploadedImage
		if err := tx.Where("user_id = ? AND purpose = ?", img.UserID, img.Purpose).First(&stored).Error; err != nil {
			return err
		}
		*img = stored
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record uploaded image: %w", err)
	}
	return previous, nil
}

func (r *GORMUploadedImageRepository) GetByUserAndPurpose(ctx context.Context, userID uint, purpose string) (*models.UploadedImage, error) {
	var img models.UploadedImage
	err := r.db.WithContext(ctx).Where("user_id = ? AND purpose = ?", userID, purpose).First(&img).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("No image found")
		}
		return nil, fmt.Errorf("failed to get uploaded image: %w", err)
	}
	return &img, nil
}
