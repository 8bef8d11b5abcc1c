package services

import (
	"time"

	"appstore/internal/models"
)

// Relevance score weights. They sum to 1.0.
const (
	ratingWeight    = 0.4
	viewsWeight     = 0.3
	downloadsWeight = 0.2
	recencyWeight   = 0.1

	viewsCap     = 1000.0
	downloadsCap = 500.0
)

// Ranker computes a ranking score for an app at a given instant. The
// catalog service takes a Ranker so the strategy can be swapped without
// touching the query path.
type Ranker func(app *models.App, now time.Time) float64

// RelevanceScore computes the weighted popularity/recency score used by
// the relevance sort. It is pure and deterministic for fixed inputs and
// a fixed instant.
//
// Ratings normalize to [0,1] over the 1-5 scale with a neutral 3.0
// prior when no reviews exist. Weekly views and total downloads clamp
// at their caps, so anything above the cap scores 1.0. Recency decays
// linearly to zero at one year old and is floored at zero; a
// future-dated release yields recency above 1, which is intentionally
// not clamped.
func RelevanceScore(app *models.App, now time.Time) float64 {
	normRating := app.AvgRating() / 5.0

	views := float64(app.WeeklyViews)
	if views > viewsCap {
		views = viewsCap
	}
	normViews := views / viewsCap

	downloads := float64(app.TotalDownloads)
	if downloads > downloadsCap {
		downloads = downloadsCap
	}
	normDownloads := downloads / downloadsCap

	ageInDays := now.Sub(app.ReleaseDate).Hours() / 24
	recency := 1 - ageInDays/365
	if recency < 0 {
		recency = 0
	}

	return ratingWeight*normRating +
		viewsWeight*normViews +
		downloadsWeight*normDownloads +
		recencyWeight*recency
}
