package services

import (
	"context"
	"strings"

	"pastelfeed/internal/common"
	"pastelfeed/internal/models"
	"pastelfeed/internal/repositories"
)

// SavedItemInput carries the fields of a new bookmark. Only ItemType is
// required.
type SavedItemInput struct {
	ItemType    string
	ItemID      *int64
	Title       *string
	Description *string
	ImageURL    *string
}

// SavedItemService manages per-user saved items.
type SavedItemService struct {
	itemRepo repositories.SavedItemRepository
}

// NewSavedItemService creates a new SavedItemService.
func NewSavedItemService(itemRepo repositories.SavedItemRepository) *SavedItemService {
	return &SavedItemService{itemRepo: itemRepo}
}

// Save stores a saved item for userID. The item type is required.
func (s *SavedItemService) Save(ctx context.Context, userID uint, in SavedItemInput) (*models.SavedItem, error) {
	itemType := strings.TrimSpace(in.ItemType)
	if itemType == "" {
		return nil, common.InvalidInput("Item type is required")
	}

	item := &models.SavedItem{
		UserID:      userID,
		ItemType:    itemType,
		ItemID:      in.ItemID,
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns userID's items, newest first.
func (s *SavedItemService) List(ctx context.Context, userID uint) ([]models.SavedItem, error) {
	return s.itemRepo.ListByUser(ctx, userID)
}

// Remove deletes one item owned by userID. Items owned by anyone else are
// reported as NotFound.
func (s *SavedItemService) Remove(ctx context.Context, userID, itemID uint) error {
	return s.itemRepo.Delete(ctx, userID, itemID)
}
