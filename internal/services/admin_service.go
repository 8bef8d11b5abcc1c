package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"appstore/internal/models"
	"appstore/internal/repositories"
	"appstore/pkg/mediastore"

	"github.com/google/uuid"
)

// CreateAppInput carries the fields of an admin create request.
// Thumbnail and cover paths point at locally staged multipart files;
// the handler owns their cleanup.
type CreateAppInput struct {
	Title                 string
	Description           string
	Platform              string
	Architecture          string
	Tags                  []string
	IsPaid                bool
	Price                 float64
	DownloadLink          string
	Size                  string
	SizeValue             int64
	CategoryName          string
	SystemRequirementsRaw string
	ReleaseDate           time.Time
	ThumbnailPaths        []string
	CoverPath             string
}

// UpdateAppInput carries a partial-field merge: nil pointers (and empty
// slices/paths) leave the stored value untouched.
type UpdateAppInput struct {
	Title                 *string
	Description           *string
	Platform              *string
	Architecture          *string
	Tags                  []string
	IsPaid                *bool
	Price                 *float64
	DownloadLink          *string
	Size                  *string
	SizeValue             *int64
	CategoryName          *string
	SystemRequirementsRaw *string
	ReleaseDate           *time.Time
	ThumbnailPaths        []string
	CoverPath             string
}

// AdminService handles the admin-only catalog mutations.
type AdminService struct {
	appRepo      repositories.AppRepository
	categoryRepo repositories.CategoryRepository
	storage      mediastore.Storage
	publisher    EventPublisher
}

// NewAdminService creates a new AdminService.
func NewAdminService(appRepo repositories.AppRepository, categoryRepo repositories.CategoryRepository, storage mediastore.Storage, publisher EventPublisher) *AdminService {
	return &AdminService{
		appRepo:      appRepo,
		categoryRepo: categoryRepo,
		storage:      storage,
		publisher:    publisher,
	}
}

func parseSystemRequirements(raw string) (models.JSONMap, error) {
	if raw == "" {
		return nil, nil
	}
	var reqs models.JSONMap
	if err := json.Unmarshal([]byte(raw), &reqs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSystemRequirements, err)
	}
	return reqs, nil
}

// CreateApp validates, uploads media and persists a new catalog entry.
// Validation failures reject the request before any media upload
// happens; a failed thumbnail upload fails the whole operation. The
// category side effect of a subsequently failed create is not rolled
// back.
func (s *AdminService) CreateApp(input CreateAppInput) (*models.App, error) {
	if len(input.Tags) > models.MaxTags {
		return nil, ErrTooManyTags
	}
	if input.CategoryName == "" {
		return nil, ErrMissingCategory
	}
	if len(input.ThumbnailPaths) == 0 {
		return nil, ErrMissingThumbnail
	}
	requirements, err := parseSystemRequirements(input.SystemRequirementsRaw)
	if err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.FindOrCreate(input.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	thumbnails := make(models.StringList, 0, len(input.ThumbnailPaths))
	for _, path := range input.ThumbnailPaths {
		url, err := s.storage.Upload(path)
		if err != nil {
			return nil, fmt.Errorf("thumbnail upload failed: %w", err)
		}
		thumbnails = append(thumbnails, url)
	}

	var coverURL string
	if input.CoverPath != "" {
		coverURL, err = s.storage.Upload(input.CoverPath)
		if err != nil {
			return nil, fmt.Errorf("cover image upload failed: %w", err)
		}
	}

	architecture := input.Architecture
	if architecture == "" {
		architecture = "Native"
	}
	releaseDate := input.ReleaseDate
	if releaseDate.IsZero() {
		releaseDate = time.Now()
	}

	app := &models.App{
		ID:                 uuid.New().String(),
		Title:              input.Title,
		Description:        input.Description,
		Platform:           input.Platform,
		Architecture:       architecture,
		Tags:               models.StringList(input.Tags),
		IsPaid:             input.IsPaid,
		Price:              input.Price,
		DownloadLink:       input.DownloadLink,
		Size:               input.Size,
		SizeValue:          input.SizeValue,
		CoverImg:           coverURL,
		Thumbnails:         thumbnails,
		CategoryID:         category.ID,
		Category:           category,
		SystemRequirements: requirements,
		ReleaseDate:        releaseDate,
	}
	if err := s.appRepo.Create(app); err != nil {
		return nil, fmt.Errorf("failed to persist app: %w", err)
	}

	publishEvent(s.publisher, "app.created", map[string]interface{}{
		"appId":    app.ID,
		"title":    app.Title,
		"category": category.Name,
	})
	return app, nil
}

// UpdateApp merges the supplied fields into an existing app. Only
// supplied fields change; categories upsert by name; supplying new
// thumbnails or a cover re-uploads and replaces them.
func (s *AdminService) UpdateApp(id string, input UpdateAppInput) (*models.App, error) {
	if input.Tags != nil && len(input.Tags) > models.MaxTags {
		return nil, ErrTooManyTags
	}

	fields := make(map[string]interface{})
	if input.Title != nil {
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Platform != nil {
		fields["platform"] = *input.Platform
	}
	if input.Architecture != nil {
		fields["architecture"] = *input.Architecture
	}
	if input.Tags != nil {
		fields["tags"] = models.StringList(input.Tags)
	}
	if input.IsPaid != nil {
		fields["is_paid"] = *input.IsPaid
	}
	if input.Price != nil {
		fields["price"] = *input.Price
	}
	if input.DownloadLink != nil {
		fields["download_link"] = *input.DownloadLink
	}
	if input.Size != nil {
		fields["size"] = *input.Size
	}
	if input.SizeValue != nil {
		fields["size_value"] = *input.SizeValue
	}
	if input.ReleaseDate != nil {
		fields["release_date"] = *input.ReleaseDate
	}
	if input.SystemRequirementsRaw != nil {
		requirements, err := parseSystemRequirements(*input.SystemRequirementsRaw)
		if err != nil {
			return nil, err
		}
		fields["system_requirements"] = requirements
	}
	if input.CategoryName != nil && *input.CategoryName != "" {
		category, err := s.categoryRepo.FindOrCreate(*input.CategoryName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		fields["category_id"] = category.ID
	}

	if len(input.ThumbnailPaths) > 0 {
		thumbnails := make(models.StringList, 0, len(input.ThumbnailPaths))
		for _, path := range input.ThumbnailPaths {
			url, err := s.storage.Upload(path)
			if err != nil {
				return nil, fmt.Errorf("thumbnail upload failed: %w", err)
			}
			thumbnails = append(thumbnails, url)
		}
		fields["thumbnails"] = thumbnails
	}
	if input.CoverPath != "" {
		coverURL, err := s.storage.Upload(input.CoverPath)
		if err != nil {
			return nil, fmt.Errorf("cover image upload failed: %w", err)
		}
		fields["cover_img"] = coverURL
	}

	if len(fields) > 0 {
		if err := s.appRepo.UpdateFields(id, fields); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrAppNotFound
			}
			return nil, err
		}
	}

	app, err := s.appRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, err
	}

	publishEvent(s.publisher, "app.updated", map[string]interface{}{
		"appId": app.ID,
		"title": app.Title,
	})
	return app, nil
}

// DeleteApp hard-deletes an app by its ID.
func (s *AdminService) DeleteApp(id string) error {
	if err := s.appRepo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrAppNotFound
		}
		return err
	}

	publishEvent(s.publisher, "app.deleted", map[string]interface{}{
		"appId": id,
	})
	return nil
}
