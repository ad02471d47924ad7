package models

import "time"

// UploadedImage records the latest image a user uploaded for a purpose such
// as "feed". There is at most one row per (UserID, Purpose).
type UploadedImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userId" gorm:"uniqueIndex:idx_uploaded_images_owner_purpose;not null"`
	Purpose   string    `json:"type" gorm:"uniqueIndex:idx_uploaded_images_owner_purpose;not null"`
	Filename  string    `json:"filename" gorm:"not null"`
	Path      string    `json:"-" gorm:"not null"`
	URL       string    `json:"imageUrl" gorm:"column:url;not null"`
	CreatedAt time.Time `json:"createdAt"`
}
