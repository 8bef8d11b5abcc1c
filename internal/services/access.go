package services

import "appstore/internal/models"

// CanDownload decides whether a user may download a paid app. It is the
// single capability check for paid content: admins bypass the purchase
// requirement, everyone else needs the app in their purchased set. An
// absent (unauthenticated) user can never download.
func CanDownload(user *models.User, appID string) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	return user.PurchasedApps.Contains(appID)
}
