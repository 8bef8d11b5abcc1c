package repositories

import "appstore/internal/models"

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	// FindOrCreate returns the category with the given name, creating
	// it first if absent. Implementations must upsert against the
	// unique name index rather than read-then-write, so concurrent
	// creations of the same name cannot double-insert.
	FindOrCreate(name string) (*models.Category, error)
	GetByName(name string) (*models.Category, error)
	GetByID(id string) (*models.Category, error)
}
