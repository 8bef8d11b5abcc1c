package services

import (
	"errors"
	"fmt"

	"appstore/internal/models"
)

// Sentinel errors returned by the catalog and admin services. Handlers
// map these to HTTP statuses with errors.Is.
var (
	ErrAppNotFound           = errors.New("app not found")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrNotPaidApp            = errors.New("app is not paid content, use the public app endpoint")
	ErrDownloadForbidden     = errors.New("user has not purchased this app")
	ErrTooManyTags           = fmt.Errorf("an app may carry at most %d tags", models.MaxTags)
	ErrMissingCategory       = errors.New("category is required")
	ErrMissingThumbnail      = errors.New("at least one thumbnail is required")
	ErrBadSystemRequirements = errors.New("invalid system requirements payload")
	ErrUnknownSizeRange      = errors.New("unknown size range")
)
