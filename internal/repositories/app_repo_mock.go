package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"appstore/internal/models"

	"github.com/google/uuid"
)

// MockAppRepository is an in-memory implementation of AppRepository.
type MockAppRepository struct {
	apps map[string]models.App
	mu   sync.RWMutex
}

// NewMockAppRepository creates a new instance of MockAppRepository.
func NewMockAppRepository() *MockAppRepository {
	return &MockAppRepository{
		apps: make(map[string]models.App),
	}
}

func matches(app *models.App, filter AppFilter) bool {
	if filter.Query != "" &&
		!strings.Contains(strings.ToLower(app.Title), strings.ToLower(filter.Query)) {
		return false
	}
	if filter.Platform != "" && app.Platform != filter.Platform {
		return false
	}
	if filter.Architecture != "" && app.Architecture != filter.Architecture {
		return false
	}
	if filter.CategoryID != "" && app.CategoryID != filter.CategoryID {
		return false
	}
	for _, tag := range filter.Tags {
		if !app.Tags.Contains(tag) {
			return false
		}
	}
	if filter.HasSizeRange {
		if app.SizeValue < filter.MinSize {
			return false
		}
		if filter.MaxSize > 0 && app.SizeValue > filter.MaxSize {
			return false
		}
	}
	return true
}

func sortApps(apps []models.App, mode SortMode) {
	sort.SliceStable(apps, func(i, j int) bool {
		a, b := &apps[i], &apps[j]
		switch mode {
		case SortPopular:
			return a.WeeklyViews > b.WeeklyViews
		case SortNewest:
			return a.ReleaseDate.After(b.ReleaseDate)
		case SortOldest:
			return a.ReleaseDate.Before(b.ReleaseDate)
		case SortSizeAsc:
			return a.SizeValue < b.SizeValue
		case SortSizeDesc:
			return a.SizeValue > b.SizeValue
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

// Search filters, sorts and paginates the in-memory set.
func (r *MockAppRepository) Search(filter AppFilter, sortMode SortMode, offset, limit int) ([]models.App, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.App, 0, len(r.apps))
	for _, app := range r.apps {
		if matches(&app, filter) {
			matched = append(matched, app)
		}
	}
	sortApps(matched, sortMode)

	total := int64(len(matched))
	if limit <= 0 {
		return matched, total, nil
	}
	if offset >= len(matched) {
		return []models.App{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// GetByID returns an app by its ID.
func (r *MockAppRepository) GetByID(id string) (*models.App, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	return &app, nil
}

// Create adds a new app.
func (r *MockAppRepository) Create(app *models.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	r.apps[app.ID] = *app
	return nil
}

// UpdateFields applies a partial-field merge to an existing app.
func (r *MockAppRepository) UpdateFields(id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[id]
	if !ok {
		return fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	for column, value := range fields {
		switch column {
		case "title":
			app.Title = value.(string)
		case "description":
			app.Description = value.(string)
		case "platform":
			app.Platform = value.(string)
		case "architecture":
			app.Architecture = value.(string)
		case "tags":
			app.Tags = value.(models.StringList)
		case "is_paid":
			app.IsPaid = value.(bool)
		case "price":
			app.Price = value.(float64)
		case "download_link":
			app.DownloadLink = value.(string)
		case "size":
			app.Size = value.(string)
		case "size_value":
			app.SizeValue = value.(int64)
		case "cover_img":
			app.CoverImg = value.(string)
		case "thumbnails":
			app.Thumbnails = value.(models.StringList)
		case "category_id":
			app.CategoryID = value.(string)
		case "system_requirements":
			app.SystemRequirements = value.(models.JSONMap)
		case "release_date":
			app.ReleaseDate = value.(time.Time)
		}
	}
	r.apps[id] = app
	return nil
}

// Delete removes an app by its ID.
func (r *MockAppRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[id]; !ok {
		return fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	delete(r.apps, id)
	return nil
}

// IncrementViews bumps the view counters under the write lock.
func (r *MockAppRepository) IncrementViews(id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[id]
	if !ok {
		return fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	app.DailyViews++
	app.WeeklyViews++
	app.MonthlyViews++
	app.LastViewed = &now
	r.apps[id] = app
	return nil
}

// IncrementDownloads bumps the download counter under the write lock
// and returns the new total.
func (r *MockAppRepository) IncrementDownloads(id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[id]
	if !ok {
		return 0, fmt.Errorf("app with ID %s: %w", id, ErrNotFound)
	}
	app.TotalDownloads++
	r.apps[id] = app
	return app.TotalDownloads, nil
}
