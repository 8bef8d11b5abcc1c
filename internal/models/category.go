package models

import "gorm.io/gorm"

// Category groups apps in the catalog. Categories are created lazily
// the first time an admin references a new name; the unique index on
// Name backs the find-or-create upsert.
type Category struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string `json:"name" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=2,max=100"`
	gorm.Model
}
