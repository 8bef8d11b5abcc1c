package repositories

import (
	"fmt"
	"strings"
	"time"

	"appstore/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMAppRepository is a GORM implementation of AppRepository.
type GORMAppRepository struct {
	db *gorm.DB
}

// NewGORMAppRepository creates a new instance of GORMAppRepository.
func NewGORMAppRepository(db *gorm.DB) *GORMAppRepository {
	return &GORMAppRepository{
		db: db,
	}
}

func applyFilter(q *gorm.DB, filter AppFilter) *gorm.DB {
	if filter.Query != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Query)+"%")
	}
	if filter.Platform != "" {
		q = q.Where("platform = ?", filter.Platform)
	}
	if filter.Architecture != "" {
		q = q.Where("architecture = ?", filter.Architecture)
	}
	if filter.CategoryID != "" {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	for _, tag := range filter.Tags {
		// Tags are stored as a JSON array of strings, so matching the
		// quoted literal requires exact tag membership.
		q = q.Where("tags LIKE ?", `%"`+tag+`"%`)
	}
	if filter.HasSizeRange {
		q = q.Where("size_value >= ?", filter.MinSize)
		if filter.MaxSize > 0 {
			q = q.Where("size_value <= ?", filter.MaxSize)
		}
	}
	return q
}

func orderClause(sort SortMode) string {
	switch sort {
	case SortPopular:
		return "weekly_views DESC"
	case SortNewest:
		return "release_date DESC"
	case SortOldest:
		return "release_date ASC"
	case SortSizeAsc:
		return "size_value ASC"
	case SortSizeDesc:
		return "size_value DESC"
	default:
		return "created_at DESC"
	}
}

// Search retrieves one page of matching apps and the total match count.
// A non-positive limit returns all matches (the relevance ranking path
// scores the full filtered set in memory).
func (r *GORMAppRepository) Search(filter AppFilter, sort SortMode, offset, limit int) ([]models.App, int64, error) {
	var total int64
	if err := applyFilter(r.db.Model(&models.App{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count apps: %w", err)
	}

	q := applyFilter(r.db.Model(&models.App{}), filter).
		Order(orderClause(sort)).Preload("Category").Preload("Reviews")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}

	var apps []models.App
	if err := q.Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search apps: %w", err)
	}
	return apps, total, nil
}

// GetByID retrieves a single app with its category and review authors
// expanded.
func (r *GORMAppRepository) GetByID(id string) (*models.App, error) {
	var app models.App
	err := r.db.Preload("Category").Preload("Reviews").Preload("Reviews.User").
		First(&app, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get app by ID %s: %w", id, err)
	}
	return &app, nil
}

// Create creates a new app in the database.
func (r *GORMAppRepository) Create(app *models.App) error {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if err := r.db.Create(app).Error; err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}

// UpdateFields updates only the supplied columns of an existing app.
func (r *GORMAppRepository) UpdateFields(id string, fields map[string]interface{}) error {
	res := r.db.Model(&models.App{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update app %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete hard-deletes an app by its ID.
func (r *GORMAppRepository) Delete(id string) error {
	res := r.db.Unscoped().Delete(&models.App{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete app %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementViews bumps all three view counters with a relative update
// so concurrent requests never lose increments.
func (r *GORMAppRepository) IncrementViews(id string, now time.Time) error {
	res := r.db.Model(&models.App{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"daily_views":   gorm.Expr("daily_views + ?", 1),
		"weekly_views":  gorm.Expr("weekly_views + ?", 1),
		"monthly_views": gorm.Expr("monthly_views + ?", 1),
		"last_viewed":   now,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to increment views for app %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementDownloads atomically bumps the download counter and returns
// the new total.
func (r *GORMAppRepository) IncrementDownloads(id string) (int64, error) {
	res := r.db.Model(&models.App{}).Where("id = ?", id).
		UpdateColumn("total_downloads", gorm.Expr("total_downloads + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to increment downloads for app %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}

	var count int64
	err := r.db.Model(&models.App{}).Where("id = ?", id).
		Pluck("total_downloads", &count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read download count for app %s: %w", id, err)
	}
	return count, nil
}
