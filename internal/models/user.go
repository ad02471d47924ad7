package models

import "time"

// User is a registered account. Password holds the bcrypt hash and never
// leaves the server.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	GoogleID    *string   `json:"googleId,omitempty" gorm:"uniqueIndex"`
	FacebookID  *string   `json:"facebookId,omitempty" gorm:"uniqueIndex"`
	DisplayName string    `json:"displayName"`
	PhotoURL    *string   `json:"photoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"-"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
