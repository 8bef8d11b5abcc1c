package repositories

import (
	"fmt"
	"sync"

	"appstore/internal/models"

	"github.com/google/uuid"
)

// MockCategoryRepository is an in-memory implementation of CategoryRepository.
type MockCategoryRepository struct {
	byName map[string]models.Category
	mu     sync.Mutex
}

// NewMockCategoryRepository creates a new instance of MockCategoryRepository.
func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		byName: make(map[string]models.Category),
	}
}

// FindOrCreate returns the named category, creating it if absent. The
// single lock gives the same no-double-insert guarantee the unique
// index provides in the GORM implementation.
func (r *MockCategoryRepository) FindOrCreate(name string) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if category, ok := r.byName[name]; ok {
		return &category, nil
	}
	category := models.Category{
		ID:   uuid.New().String(),
		Name: name,
	}
	r.byName[name] = category
	return &category, nil
}

// GetByName retrieves a category by name.
func (r *MockCategoryRepository) GetByName(name string) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	category, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("category with name %s: %w", name, ErrNotFound)
	}
	return &category, nil
}

// GetByID retrieves a category by ID.
func (r *MockCategoryRepository) GetByID(id string) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, category := range r.byName {
		if category.ID == id {
			return &category, nil
		}
	}
	return nil, fmt.Errorf("category with ID %s: %w", id, ErrNotFound)
}
