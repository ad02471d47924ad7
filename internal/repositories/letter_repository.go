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

// LetterRepository stores the single letter each user owns.
type LetterRepository interface {
	GetByUser(ctx context.Context, userID uint) (*models.Letter, error)
	Upsert(ctx context.Context, letter *models.Letter) (*models.Letter, error)
}

type GORMLetterRepository struct {
	db *gorm.DB
}

func NewGORMLetterRepository(db *gorm.DB) *GORMLetterRepository {
	return &GORMLetterRepository{db: db}
}

func (r *GORMLetterRepository) GetByUser(ctx context.Context, userID uint) (*models.Letter, error) {
	var letter models.Letter
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&letter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NotFound("Letter not found")
		}
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}
	return &letter, nil
}

// Upsert creates the owner's letter or overwrites its title and content in
// a single statement, then returns the stored row.
func (r *GORMLetterRepository) Upsert(ctx context.Context, letter *models.Letter) (*models.Letter, error) {
	var stored models.Letter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "content", "updated_at"}),
		}).Create(letter).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ?", letter.UserID).First(&stored).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save letter: %w", err)
	}
	return &stored, nil
}
