package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"time"

	"appstore/internal/services"
	"appstore/pkg/mediastore"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminHandler handles the admin-only catalog mutations. Multipart
// uploads are staged under tmpDir and removed after every request
// attempt, success or failure.
type AdminHandler struct {
	service  *services.AdminService
	validate *validator.Validate
	tmpDir   string
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *services.AdminService, tmpDir string) *AdminHandler {
	return &AdminHandler{
		service:  service,
		validate: validator.New(),
		tmpDir:   tmpDir,
	}
}

// RegisterRoutes registers the admin routes. The caller is expected to
// pass a group behind AuthRequired and AdminRequired.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	appRoutes := router.Group("/apps")
	appRoutes.Post("/", h.HandleCreateApp)
	appRoutes.Put("/:id", h.HandleUpdateApp)
	appRoutes.Delete("/:id", h.HandleDeleteApp)
}

// createAppRequest carries the scalar fields validated on create.
type createAppRequest struct {
	Title    string  `validate:"required,min=2,max=200"`
	Platform string  `validate:"required"`
	Category string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
}

// stageFile saves one multipart file into the staging directory and
// returns its local path.
func (h *AdminHandler) stageFile(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	path := filepath.Join(h.tmpDir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		return "", fmt.Errorf("failed to stage upload %s: %w", file.Filename, err)
	}
	return path, nil
}

func (h *AdminHandler) stageUploads(c *fiber.Ctx, form *multipart.Form) (thumbnails []string, cover string, err error) {
	for _, file := range form.File["thumbnail"] {
		path, stageErr := h.stageFile(c, file)
		if stageErr != nil {
			return thumbnails, cover, stageErr
		}
		thumbnails = append(thumbnails, path)
	}
	if covers := form.File["coverImg"]; len(covers) > 0 {
		cover, err = h.stageFile(c, covers[0])
	}
	return thumbnails, cover, err
}

func mutationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrAppNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrTooManyTags),
		errors.Is(err, services.ErrMissingCategory),
		errors.Is(err, services.ErrMissingThumbnail),
		errors.Is(err, services.ErrBadSystemRequirements):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	log.Printf("Admin mutation failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Operation failed",
		"error":   err.Error(),
	})
}

// HandleCreateApp creates a new catalog entry from a multipart form.
// Tags arrive comma-separated, system requirements as a JSON blob, and
// thumbnail/coverImg as files.
func (h *AdminHandler) HandleCreateApp(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid multipart form",
			"error":   err.Error(),
		})
	}

	price, err := parseFloatValue(c.FormValue("price", "0"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid price value",
		})
	}
	sizeValue, err := parseIntValue(c.FormValue("sizeValue", "0"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid sizeValue",
		})
	}

	req := createAppRequest{
		Title:    c.FormValue("title"),
		Platform: c.FormValue("platform"),
		Category: c.FormValue("category"),
		Price:    price,
	}
	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	thumbnails, cover, err := h.stageUploads(c, form)
	staged := append(append([]string{}, thumbnails...), cover)
	defer mediastore.Cleanup(staged...)
	if err != nil {
		log.Printf("Error staging uploads: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not stage uploaded files",
			"error":   err.Error(),
		})
	}

	input := services.CreateAppInput{
		Title:                 req.Title,
		Description:           c.FormValue("description"),
		Platform:              req.Platform,
		Architecture:          c.FormValue("architecture"),
		Tags:                  splitCSV(c.FormValue("tags")),
		IsPaid:                c.FormValue("isPaid") == "true",
		Price:                 price,
		DownloadLink:          c.FormValue("downloadLink"),
		Size:                  c.FormValue("size"),
		SizeValue:             sizeValue,
		CategoryName:          req.Category,
		SystemRequirementsRaw: c.FormValue("systemRequirements"),
		ThumbnailPaths:        thumbnails,
		CoverPath:             cover,
	}
	if releaseDate := c.FormValue("releaseDate"); releaseDate != "" {
		parsed, err := time.Parse(time.RFC3339, releaseDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "releaseDate must be RFC3339",
			})
		}
		input.ReleaseDate = parsed
	}

	app, err := h.service.CreateApp(input)
	if err != nil {
		return mutationError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"app":     app,
	})
}

// HandleUpdateApp applies a partial update: only fields present in the
// form change.
func (h *AdminHandler) HandleUpdateApp(c *fiber.Ctx) error {
	appID := c.Params("id")
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid multipart form",
			"error":   err.Error(),
		})
	}

	input := services.UpdateAppInput{}
	values := form.Value
	strField := func(name string) *string {
		if v, ok := values[name]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}

	input.Title = strField("title")
	input.Description = strField("description")
	input.Platform = strField("platform")
	input.Architecture = strField("architecture")
	input.DownloadLink = strField("downloadLink")
	input.Size = strField("size")
	input.CategoryName = strField("category")
	input.SystemRequirementsRaw = strField("systemRequirements")

	if v := strField("tags"); v != nil {
		tags := splitCSV(*v)
		if tags == nil {
			tags = []string{}
		}
		input.Tags = tags
	}
	if v := strField("isPaid"); v != nil {
		isPaid := *v == "true"
		input.IsPaid = &isPaid
	}
	if v := strField("price"); v != nil {
		price, err := parseFloatValue(*v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid price value",
			})
		}
		input.Price = &price
	}
	if v := strField("sizeValue"); v != nil {
		sizeValue, err := parseIntValue(*v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid sizeValue",
			})
		}
		input.SizeValue = &sizeValue
	}
	if v := strField("releaseDate"); v != nil {
		parsed, err := time.Parse(time.RFC3339, *v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "releaseDate must be RFC3339",
			})
		}
		input.ReleaseDate = &parsed
	}

	thumbnails, cover, err := h.stageUploads(c, form)
	staged := append(append([]string{}, thumbnails...), cover)
	defer mediastore.Cleanup(staged...)
	if err != nil {
		log.Printf("Error staging uploads: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Could not stage uploaded files",
			"error":   err.Error(),
		})
	}
	input.ThumbnailPaths = thumbnails
	input.CoverPath = cover

	app, err := h.service.UpdateApp(appID, input)
	if err != nil {
		return mutationError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"app":     app,
	})
}

// HandleDeleteApp hard-deletes an app by ID.
func (h *AdminHandler) HandleDeleteApp(c *fiber.Ctx) error {
	appID := c.Params("id")
	if err := h.service.DeleteApp(appID); err != nil {
		return mutationError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("App %s deleted successfully", appID),
	})
}

func parseFloatValue(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseIntValue(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}
