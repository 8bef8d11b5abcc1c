package repositories

import (
	"fmt"

	"appstore/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	db *gorm.DB
}

// NewGORMCategoryRepository creates a new instance of GORMCategoryRepository.
func NewGORMCategoryRepository(db *gorm.DB) *GORMCategoryRepository {
	return &GORMCategoryRepository{
		db: db,
	}
}

// FindOrCreate upserts a category by its unique name.
func (r *GORMCategoryRepository) FindOrCreate(name string) (*models.Category, error) {
	category := models.Category{
		ID:   uuid.New().String(),
		Name: name,
	}
	// FirstOrCreate against the unique index on name; a concurrent
	// insert of the same name loses the race at the constraint, not in
	// handler code.
	err := r.db.Where(models.Category{Name: name}).
		Attrs(models.Category{ID: category.ID}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create category %s: %w", name, err)
	}
	return &category, nil
}

// GetByName retrieves a category by its unique name.
func (r *GORMCategoryRepository) GetByName(name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, "name = ?", name).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("category with name %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by name %s: %w", name, err)
	}
	return &category, nil
}

// GetByID retrieves a category by its ID.
func (r *GORMCategoryRepository) GetByID(id string) (*models.Category, error) {
	var category models.Category
	if err := r.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("category with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by ID %s: %w", id, err)
	}
	return &category, nil
}
