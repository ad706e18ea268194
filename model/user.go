package model

import (
	"time"
)

// User is an account of the authentication service
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash      string     `gorm:"not null" json:"-"`
	EmailConfirmedAt  *time.Time `json:"email_confirmed_at"`
	ConfirmationToken *string    `gorm:"uniqueIndex" json:"-"`
	RedirectTo        string     `gorm:"type:text" json:"-"`
	TokenVersion      int        `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens
	LastSignInAt      *time.Time `json:"last_sign_in_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relationships
	Roles []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsConfirmed reports whether the user followed the confirmation link
func (u *User) IsConfirmed() bool {
	return u.EmailConfirmedAt != nil
}
