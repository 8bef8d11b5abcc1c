package models

import "gorm.io/gorm"

// User roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a user of the store.
type User struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email    string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password string `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // Never serialized
	Role     string `json:"role" gorm:"type:varchar(20);default:USER"`
	// PurchasedApps holds the IDs of paid apps the user owns. The set is
	// written by the commerce system; this service only reads it.
	PurchasedApps StringList `json:"purchasedApps" gorm:"type:text"`
	gorm.Model    // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
