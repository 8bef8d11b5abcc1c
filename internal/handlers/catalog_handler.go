package handlers

import (
	"errors"
	"log"
	"strings"

	"appstore/internal/middleware"
	"appstore/internal/models"
	"appstore/internal/repositories"
	"appstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles HTTP requests for browsing the catalog.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service: service,
	}
}

// RegisterRoutes registers the public catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	appRoutes := router.Group("/apps")
	appRoutes.Get("/", h.HandleListApps)
	appRoutes.Get("/:id", h.HandleGetApp)
	appRoutes.Post("/:id/downloads", h.HandleRecordDownload)

	router.Get("/categories/:name/apps", h.HandleListAppsByCategory)
}

// RegisterPaidRoutes registers the paid-content route. The caller is
// expected to pass a group behind AuthRequired.
func (h *CatalogHandler) RegisterPaidRoutes(router fiber.Router) {
	router.Get("/apps/:id/download", h.HandleGetPaidApp)
}

// splitCSV splits a comma-separated query value into trimmed, non-empty
// items.
func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func listParamsFromQuery(c *fiber.Ctx) services.ListParams {
	return services.ListParams{
		Page:         c.QueryInt("page", 1),
		Limit:        c.QueryInt("limit", services.DefaultPageLimit),
		Query:        c.Query("q"),
		Platform:     c.Query("platform"),
		Architecture: c.Query("architecture"),
		Tags:         splitCSV(c.Query("tags")),
		SizeRange:    c.Query("sizeRange"),
		SortBy:       repositories.ParseSortMode(c.Query("sortBy")),
	}
}

// HandleListApps lists the catalog with filters, sorting and
// pagination. Zero matches are a valid empty page on this path.
func (h *CatalogHandler) HandleListApps(c *fiber.Ctx) error {
	params := listParamsFromQuery(c)
	apps, total, err := h.service.ListApps(params)
	if err != nil {
		log.Printf("Error listing apps: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not retrieve apps",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
		"apps":    apps,
	})
}

// HandleListAppsByCategory lists one category's apps. An unknown
// category or zero matches yields 404.
func (h *CatalogHandler) HandleListAppsByCategory(c *fiber.Ctx) error {
	categoryName := c.Params("name")
	params := listParamsFromQuery(c)
	apps, total, err := h.service.ListAppsByCategory(categoryName, params)
	if err != nil {
		if errors.Is(err, services.ErrCategoryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "No apps found in category " + categoryName,
			})
		}
		if errors.Is(err, services.ErrUnknownSizeRange) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
		log.Printf("Error listing apps for category %s: %v", categoryName, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not retrieve apps",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
		"apps":    apps,
	})
}

// HandleGetApp returns one app by ID. This is the public preview path:
// paid download links are redacted and view counters are bumped as a
// side effect.
func (h *CatalogHandler) HandleGetApp(c *fiber.Ctx) error {
	appID := c.Params("id")
	app, err := h.service.GetApp(appID)
	if err != nil {
		if errors.Is(err, services.ErrAppNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "App with ID " + appID + " not found",
			})
		}
		log.Printf("Error getting app %s: %v", appID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not retrieve app",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"app":     app,
	})
}

// HandleGetPaidApp returns the full record of a paid app, download link
// included, after the access check.
func (h *CatalogHandler) HandleGetPaidApp(c *fiber.Ctx) error {
	appID := c.Params("id")
	user, _ := c.Locals(middleware.UserKey).(*models.User)

	app, err := h.service.GetPaidApp(appID, user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAppNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "App with ID " + appID + " not found",
			})
		case errors.Is(err, services.ErrNotPaidApp):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "This app is not paid content, use the public app endpoint",
			})
		case errors.Is(err, services.ErrDownloadForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "You have not purchased this app",
			})
		}
		log.Printf("Error getting paid app %s: %v", appID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not retrieve app",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"app":     app,
	})
}

// HandleRecordDownload increments the download counter and returns the
// new total.
func (h *CatalogHandler) HandleRecordDownload(c *fiber.Ctx) error {
	appID := c.Params("id")
	count, err := h.service.RecordDownload(appID)
	if err != nil {
		if errors.Is(err, services.ErrAppNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"message": "App with ID " + appID + " not found",
			})
		}
		log.Printf("Error recording download for app %s: %v", appID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not record download",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"totalDownloads": count,
	})
}
