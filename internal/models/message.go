package models

import "time"

// Message is a post on the shared wall. UserID is not a foreign key: it
// survives deletion of the author so the wall can still name the poster.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *uint     `json:"userId" gorm:"index"`
	Author    *User     `json:"-" gorm:"foreignKey:UserID"`
	Body      string    `json:"message" gorm:"column:message;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}
