package repositories

import (
	"errors"
	"time"

	"appstore/internal/models"
)

// ErrNotFound is wrapped by repository errors when a record does not
// resolve, so callers can branch with errors.Is.
var ErrNotFound = errors.New("record not found")

// SortMode selects the ordering of a catalog search.
type SortMode string

const (
	SortDefault   SortMode = "default"   // creation time, newest first
	SortPopular   SortMode = "popular"   // weekly views descending
	SortNewest    SortMode = "newest"    // release date descending
	SortOldest    SortMode = "oldest"    // release date ascending
	SortSizeAsc   SortMode = "sizeAsc"   // size value ascending
	SortSizeDesc  SortMode = "sizeDesc"  // size value descending
	SortRelevance SortMode = "relevance" // computed score, ranked by the caller
)

// ParseSortMode maps a query-string value to a SortMode, falling back
// to the default ordering for unknown values.
func ParseSortMode(value string) SortMode {
	switch SortMode(value) {
	case SortPopular, SortNewest, SortOldest, SortSizeAsc, SortSizeDesc, SortRelevance:
		return SortMode(value)
	default:
		return SortDefault
	}
}

// AppFilter describes the match criteria of a catalog search. Zero
// values mean "no constraint".
type AppFilter struct {
	Query        string   // case-insensitive substring match on title
	Platform     string   // exact match
	Architecture string   // exact match
	Tags         []string // app must carry ALL listed tags
	CategoryID   string   // exact match
	MinSize      int64    // inclusive lower bound on SizeValue, in KB
	MaxSize      int64    // inclusive upper bound; 0 means unbounded
	HasSizeRange bool     // MinSize/MaxSize are active
}

// AppRepository defines the interface for app data access.
type AppRepository interface {
	// Search returns one page of matching apps plus the total match
	// count. A non-positive limit returns the full filtered set, which
	// the relevance ranking path relies on.
	Search(filter AppFilter, sort SortMode, offset, limit int) ([]models.App, int64, error)
	GetByID(id string) (*models.App, error)
	Create(app *models.App) error
	// UpdateFields applies a partial-field merge; only the supplied
	// columns change.
	UpdateFields(id string, fields map[string]interface{}) error
	Delete(id string) error
	// IncrementViews bumps the daily/weekly/monthly view counters by
	// one and stamps the last-viewed time, as a relative update.
	IncrementViews(id string, now time.Time) error
	// IncrementDownloads bumps the total download counter by one,
	// atomically, and returns the new count.
	IncrementDownloads(id string) (int64, error)
}
