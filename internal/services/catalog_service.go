package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"appstore/internal/models"
	"appstore/internal/repositories"
)

// DefaultPageLimit is the page size used when the caller does not
// supply one.
const DefaultPageLimit = 48

// EventPublisher publishes catalog events. *rabbitmq.Client satisfies
// it; a nil publisher disables event publication.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// sizeBuckets maps a size-range name to an inclusive [min, max] range
// over SizeValue in KB. A zero max means the bucket is open-ended.
var sizeBuckets = map[string][2]int64{
	"0-50":   {0, 50 * 1024},
	"50-150": {50 * 1024, 150 * 1024},
	"150+":   {150 * 1024, 0},
}

// ListParams carries the pagination, filter and sort inputs of a
// catalog listing.
type ListParams struct {
	Page         int
	Limit        int
	Query        string
	Platform     string
	Architecture string
	Tags         []string
	SizeRange    string // bucket name, only honored on category-scoped listings
	SortBy       repositories.SortMode
}

func (p *ListParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.SortBy == "" {
		p.SortBy = repositories.SortDefault
	}
}

// CatalogService handles browsing, single-item fetches, paid-content
// access and download recording.
type CatalogService struct {
	appRepo      repositories.AppRepository
	categoryRepo repositories.CategoryRepository
	publisher    EventPublisher
	rank         Ranker
	now          func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(appRepo repositories.AppRepository, categoryRepo repositories.CategoryRepository, publisher EventPublisher) *CatalogService {
	return &CatalogService{
		appRepo:      appRepo,
		categoryRepo: categoryRepo,
		publisher:    publisher,
		rank:         RelevanceScore,
		now:          time.Now,
	}
}

// ListApps returns one page of the catalog plus the total match count.
// Download links of paid apps are always redacted on this path.
func (s *CatalogService) ListApps(params ListParams) ([]models.App, int64, error) {
	params.normalize()
	filter := repositories.AppFilter{
		Query:        params.Query,
		Platform:     params.Platform,
		Architecture: params.Architecture,
		Tags:         params.Tags,
	}
	return s.list(filter, params)
}

// ListAppsByCategory returns one page of a category's apps. Unlike the
// top-level listing, zero matches signal not-found: browsing an unknown
// or empty category is treated as a miss, not an empty page.
func (s *CatalogService) ListAppsByCategory(categoryName string, params ListParams) ([]models.App, int64, error) {
	params.normalize()

	category, err := s.categoryRepo.GetByName(categoryName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, 0, ErrCategoryNotFound
		}
		return nil, 0, err
	}

	filter := repositories.AppFilter{
		Query:        params.Query,
		Platform:     params.Platform,
		Architecture: params.Architecture,
		Tags:         params.Tags,
		CategoryID:   category.ID,
	}
	if params.SizeRange != "" {
		bucket, ok := sizeBuckets[params.SizeRange]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownSizeRange, params.SizeRange)
		}
		filter.HasSizeRange = true
		filter.MinSize = bucket[0]
		filter.MaxSize = bucket[1]
	}

	apps, total, err := s.list(filter, params)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, ErrCategoryNotFound
	}
	return apps, total, nil
}

// list runs the search and applies redaction. The relevance sort scores
// the full filtered set in memory before paginating, because the score
// is computed, not persisted.
func (s *CatalogService) list(filter repositories.AppFilter, params ListParams) ([]models.App, int64, error) {
	offset := (params.Page - 1) * params.Limit

	var apps []models.App
	var total int64
	var err error
	if params.SortBy == repositories.SortRelevance {
		apps, total, err = s.appRepo.Search(filter, repositories.SortDefault, 0, 0)
		if err != nil {
			return nil, 0, err
		}
		now := s.now()
		sort.SliceStable(apps, func(i, j int) bool {
			return s.rank(&apps[i], now) > s.rank(&apps[j], now)
		})
		apps = pageSlice(apps, offset, params.Limit)
	} else {
		apps, total, err = s.appRepo.Search(filter, params.SortBy, offset, params.Limit)
		if err != nil {
			return nil, 0, err
		}
	}

	for i := range apps {
		apps[i].RedactDownloadLink()
	}
	return apps, total, nil
}

func pageSlice(apps []models.App, offset, limit int) []models.App {
	if offset >= len(apps) {
		return []models.App{}
	}
	end := offset + limit
	if end > len(apps) {
		end = len(apps)
	}
	return apps[offset:end]
}

// GetApp returns one app with its category and review authors expanded.
// Every successful fetch bumps the view counters as a side effect; the
// response is built from the pre-increment read and counter failures
// are only logged. This is the public preview path, so the download
// link of a paid app is redacted regardless of the caller.
func (s *CatalogService) GetApp(id string) (*models.App, error) {
	app, err := s.appRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, err
	}

	if err := s.appRepo.IncrementViews(id, s.now()); err != nil {
		log.Printf("Warning: failed to increment views for app %s: %v", id, err)
	}

	app.RedactDownloadLink()
	return app, nil
}

// GetPaidApp returns the full record of a paid app, download link
// included, for a caller that passes the access check. Requests for
// non-paid apps are rejected and directed to the public path. No view
// counters are touched here.
func (s *CatalogService) GetPaidApp(id string, user *models.User) (*models.App, error) {
	app, err := s.appRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAppNotFound
		}
		return nil, err
	}
	if !app.IsPaid {
		return nil, ErrNotPaidApp
	}
	if !CanDownload(user, app.ID) {
		return nil, ErrDownloadForbidden
	}
	return app, nil
}

// RecordDownload atomically increments the download counter and returns
// the new total. No access check happens at this layer.
func (s *CatalogService) RecordDownload(id string) (int64, error) {
	count, err := s.appRepo.IncrementDownloads(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, ErrAppNotFound
		}
		return 0, err
	}

	publishEvent(s.publisher, "app.downloaded", map[string]interface{}{
		"appId":          id,
		"totalDownloads": count,
	})
	return count, nil
}
