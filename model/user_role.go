package model

import "time"

// RoleAdmin grants access to the admin API
const RoleAdmin = "admin"

// UserRole asserts that a user holds a role
type UserRole struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Role      string    `gorm:"primaryKey;type:varchar(20)" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for UserRole
func (UserRole) TableName() string {
	return "user_roles"
}
