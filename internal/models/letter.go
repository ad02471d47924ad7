package models

import "time"

// DefaultLetterTitle is stored when a letter is saved without a title.
const DefaultLetterTitle = "Untitled"

// Letter is the single free-text document a user owns.
type Letter struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex;not null"`
	Title     string    `json:"title"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
