package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxTags is the maximum number of tags an app may carry.
const MaxTags = 15

// App represents a catalog entry in the store.
type App struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Title        string     `json:"title" gorm:"type:varchar(200)" validate:"required,min=2,max=200"`
	Description  string     `json:"description" validate:"omitempty,max=5000"`
	Platform     string     `json:"platform" gorm:"type:varchar(50)" validate:"required"`
	Architecture string     `json:"architecture" gorm:"type:varchar(50);default:Native"`
	Tags         StringList `json:"tags" gorm:"type:text"`
	IsPaid       bool       `json:"isPaid"`
	Price        float64    `json:"price" validate:"gte=0"`
	// DownloadLink is omitted from responses when blanked by the
	// redaction rules for paid apps.
	DownloadLink string     `json:"downloadLink,omitempty"`
	Size         string     `json:"size" gorm:"type:varchar(50)"`
	SizeValue    int64      `json:"sizeValue"` // in KB, used for size sorting and range buckets
	CoverImg     string     `json:"coverImg"`
	Thumbnails   StringList `json:"thumbnails" gorm:"type:text"`

	CategoryID string    `json:"categoryId" gorm:"type:varchar(36);index"`
	Category   *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`

	SystemRequirements JSONMap  `json:"systemRequirements" gorm:"type:text"`
	Reviews            []Review `json:"reviews" gorm:"foreignKey:AppID"`

	// Popularity counters. Incremented with relative updates at the
	// store level; the daily/weekly/monthly roll-over reset happens
	// outside this service.
	DailyViews     int64      `json:"dailyViews"`
	WeeklyViews    int64      `json:"weeklyViews"`
	MonthlyViews   int64      `json:"monthlyViews"`
	TotalDownloads int64      `json:"totalDownloads"`
	LastViewed     *time.Time `json:"lastViewed,omitempty"`

	ReleaseDate time.Time `json:"releaseDate"`
	gorm.Model  // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// AvgRating returns the mean review rating, or 3.0 (the midpoint of the
// 1-5 scale) when the app has no reviews yet.
func (a *App) AvgRating() float64 {
	if len(a.Reviews) == 0 {
		return 3.0
	}
	var sum float64
	for _, r := range a.Reviews {
		sum += float64(r.Rating)
	}
	return sum / float64(len(a.Reviews))
}

// RedactDownloadLink blanks the download link on paid apps so the
// omitempty JSON tag drops the key from public responses.
func (a *App) RedactDownloadLink() {
	if a.IsPaid {
		a.DownloadLink = ""
	}
}

// Review is a user rating attached to an app.
type Review struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AppID      string `json:"appId" gorm:"type:varchar(36);index"`
	UserID     string `json:"userId" gorm:"type:varchar(36)"`
	User       *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Rating     int    `json:"rating" validate:"min=1,max=5"`
	gorm.Model
}
