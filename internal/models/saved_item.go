package models

import "time"

// SavedItem is a per-user bookmark with a free-form type tag.
type SavedItem struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"userId" gorm:"index;not null"`
	ItemType    string    `json:"itemType" gorm:"not null"`
	ItemID      *int64    `json:"itemId"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
