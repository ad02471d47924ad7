package models

import "time"

// SessionRecord is the SQL backing row for a fiber session. A nil ExpiresAt
// never expires.
type SessionRecord struct {
	ID        string     `gorm:"primaryKey"`
	Data      []byte     `gorm:"not null"`
	ExpiresAt *time.Time `gorm:"index"`
}

func (SessionRecord) TableName() string {
	return "sessions"
}
