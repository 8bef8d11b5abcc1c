package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"appstore/internal/handlers"
	"appstore/internal/middleware"
	"appstore/internal/models"
	"appstore/internal/repositories"
	"appstore/internal/services"
	"appstore/pkg/mediastore"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	app          *fiber.App
	db           *gorm.DB
	appRepo      repositories.AppRepository
	categoryRepo repositories.CategoryRepository
	userRepo     repositories.UserRepository
}

// setupEnv sets up a Fiber app for testing with in-memory SQLite and
// all handlers/services, mirroring the wiring in main.
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// One named in-memory database per test keeps state isolated.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.App{}, &models.Review{}, &models.Category{}, &models.User{})
	assert.NoError(t, err)

	appRepo := repositories.NewGORMAppRepository(db)
	categoryRepo := repositories.NewGORMCategoryRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	storage, err := mediastore.NewLocalStorage(t.TempDir(), "/media")
	assert.NoError(t, err)

	authService := services.NewAuthService(userRepo, jwtSecret)
	catalogService := services.NewCatalogService(appRepo, categoryRepo, nil) // nil for RabbitMQ publisher
	adminService := services.NewAdminService(appRepo, categoryRepo, storage, nil)

	authHandler := handlers.NewAuthHandler(authService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	adminHandler := handlers.NewAdminHandler(adminService, t.TempDir())

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	authHandler.RegisterRoutes(apiV1)
	catalogHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService, userRepo))
	catalogHandler.RegisterPaidRoutes(protectedRoutes)

	adminRoutes := apiV1.Group("/admin",
		middleware.AuthRequired(authService, userRepo),
		middleware.AdminRequired())
	adminHandler.RegisterRoutes(adminRoutes)

	return &testEnv{
		app:          app,
		db:           db,
		appRepo:      appRepo,
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
	}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func registerAndLogin(t *testing.T, env *testEnv, username string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{
		"username": username,
		"password": "password123",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	token, _ := loginResp["token"].(string)
	assert.NotEmpty(t, token)
	return token
}

func promoteToAdmin(t *testing.T, env *testEnv, username string) {
	t.Helper()
	err := env.db.Model(&models.User{}).Where("username = ?", username).
		Update("role", models.RoleAdmin).Error
	assert.NoError(t, err)
}

func grantPurchase(t *testing.T, env *testEnv, username, appID string) {
	t.Helper()
	err := env.db.Model(&models.User{}).Where("username = ?", username).
		Update("purchased_apps", models.StringList{appID}).Error
	assert.NoError(t, err)
}

func seedApp(t *testing.T, env *testEnv, app *models.App, categoryName string) *models.App {
	t.Helper()
	category, err := env.categoryRepo.FindOrCreate(categoryName)
	assert.NoError(t, err)
	app.CategoryID = category.ID
	assert.NoError(t, env.appRepo.Create(app))
	return app
}

func getJSON(t *testing.T, env *testEnv, method, url, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func multipartBody(t *testing.T, fields map[string]string, thumbnails int, withCover bool) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	for i := 0; i < thumbnails; i++ {
		part, err := writer.CreateFormFile("thumbnail", fmt.Sprintf("thumb%d.png", i))
		assert.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		assert.NoError(t, err)
	}
	if withCover {
		part, err := writer.CreateFormFile("coverImg", "cover.png")
		assert.NoError(t, err)
		_, err = part.Write([]byte("cover-bytes"))
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestPublicListingRedactsPaidApps(t *testing.T) {
	env := setupEnv(t)

	seedApp(t, env, &models.App{
		ID: "paid-1", Title: "Premium Racer", Platform: "Windows",
		IsPaid: true, Price: 19.99, DownloadLink: "https://dl.example.com/premium.zip",
	}, "Racing")
	seedApp(t, env, &models.App{
		ID: "free-1", Title: "Free Racer", Platform: "Windows",
		DownloadLink: "https://dl.example.com/free.zip",
	}, "Racing")

	for _, sortBy := range []string{"default", "popular", "newest", "relevance", "sizeAsc"} {
		status, body := getJSON(t, env, http.MethodGet, "/api/v1/apps?sortBy="+sortBy, "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(2), body["total"])

		apps, ok := body["apps"].([]interface{})
		assert.True(t, ok)
		for _, raw := range apps {
			entry := raw.(map[string]interface{})
			if entry["isPaid"] == true {
				_, present := entry["downloadLink"]
				assert.False(t, present, "paid downloadLink leaked under sort %s", sortBy)
			} else {
				assert.Equal(t, "https://dl.example.com/free.zip", entry["downloadLink"])
			}
			// Category reference is expanded in listings
			category, ok := entry["category"].(map[string]interface{})
			assert.True(t, ok)
			assert.Equal(t, "Racing", category["name"])
		}
	}
}

func TestListingFiltersAndEmptyAsymmetry(t *testing.T) {
	env := setupEnv(t)

	// Top-level listing with zero matches is a valid empty page
	status, body := getJSON(t, env, http.MethodGet, "/api/v1/apps", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["total"])

	// Category-scoped listing with zero matches is not found
	status, body = getJSON(t, env, http.MethodGet, "/api/v1/categories/Unknown/apps", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])

	seedApp(t, env, &models.App{
		ID: "small-1", Title: "Pocket Puzzle", Platform: "Android",
		Tags: models.StringList{"puzzle", "casual"}, SizeValue: 30 * 1024,
	}, "Puzzle")
	seedApp(t, env, &models.App{
		ID: "big-1", Title: "Open World Puzzle", Platform: "Windows",
		Tags: models.StringList{"puzzle", "open-world"}, SizeValue: 200 * 1024,
	}, "Puzzle")

	// Free-text query is a case-insensitive title substring match
	status, body = getJSON(t, env, http.MethodGet, "/api/v1/apps?q=pocket", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	// Tag filter requires all listed tags
	status, body = getJSON(t, env, http.MethodGet, "/api/v1/apps?tags=puzzle,casual", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	// The open-ended size bucket matches anything at or over 150 MB
	status, body = getJSON(t, env, http.MethodGet, "/api/v1/categories/Puzzle/apps?sizeRange=150%2B", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])
	apps := body["apps"].([]interface{})
	entry := apps[0].(map[string]interface{})
	assert.Equal(t, "big-1", entry["id"])

	// Platform filter that matches nothing inside a category is 404
	status, _ = getJSON(t, env, http.MethodGet, "/api/v1/categories/Puzzle/apps?platform=macOS", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetAppViewCounters(t *testing.T) {
	env := setupEnv(t)
	seedApp(t, env, &models.App{
		ID: "app-1", Title: "Counter", Platform: "Windows",
		IsPaid: true, DownloadLink: "https://dl.example.com/x.zip",
	}, "Tools")

	// First fetch reflects the pre-increment read
	status, body := getJSON(t, env, http.MethodGet, "/api/v1/apps/app-1", "")
	assert.Equal(t, http.StatusOK, status)
	app := body["app"].(map[string]interface{})
	assert.Equal(t, float64(0), app["dailyViews"])
	_, present := app["downloadLink"]
	assert.False(t, present, "public preview must redact the paid download link")

	status, body = getJSON(t, env, http.MethodGet, "/api/v1/apps/app-1", "")
	assert.Equal(t, http.StatusOK, status)
	app = body["app"].(map[string]interface{})
	assert.Equal(t, float64(1), app["dailyViews"])
	assert.Equal(t, float64(1), app["weeklyViews"])
	assert.Equal(t, float64(1), app["monthlyViews"])
	assert.NotNil(t, app["lastViewed"])

	status, _ = getJSON(t, env, http.MethodGet, "/api/v1/apps/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPaidAccessFlow(t *testing.T) {
	env := setupEnv(t)
	seedApp(t, env, &models.App{
		ID: "paid-1", Title: "Premium", Platform: "Windows",
		IsPaid: true, DownloadLink: "https://dl.example.com/premium.zip",
	}, "Games")
	seedApp(t, env, &models.App{
		ID: "free-1", Title: "Free", Platform: "Windows",
		DownloadLink: "https://dl.example.com/free.zip",
	}, "Games")

	// Unauthenticated callers are rejected before any access check
	status, _ := getJSON(t, env, http.MethodGet, "/api/v1/apps/paid-1/download", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	token := registerAndLogin(t, env, "buyer")

	// Authenticated but without a purchase record
	status, _ = getJSON(t, env, http.MethodGet, "/api/v1/apps/paid-1/download", token)
	assert.Equal(t, http.StatusForbidden, status)

	// The paid endpoint rejects non-paid apps toward the public path
	status, _ = getJSON(t, env, http.MethodGet, "/api/v1/apps/free-1/download", token)
	assert.Equal(t, http.StatusBadRequest, status)

	// Purchase state is read fresh per request, no re-login needed
	grantPurchase(t, env, "buyer", "paid-1")
	status, body := getJSON(t, env, http.MethodGet, "/api/v1/apps/paid-1/download", token)
	assert.Equal(t, http.StatusOK, status)
	app := body["app"].(map[string]interface{})
	assert.Equal(t, "https://dl.example.com/premium.zip", app["downloadLink"])

	// Admins bypass the purchase requirement
	adminToken := registerAndLogin(t, env, "root")
	promoteToAdmin(t, env, "root")
	status, body = getJSON(t, env, http.MethodGet, "/api/v1/apps/paid-1/download", adminToken)
	assert.Equal(t, http.StatusOK, status)
	app = body["app"].(map[string]interface{})
	assert.Equal(t, "https://dl.example.com/premium.zip", app["downloadLink"])
}

func TestDownloadRecorder(t *testing.T) {
	env := setupEnv(t)
	seedApp(t, env, &models.App{ID: "app-1", Title: "DL", Platform: "Windows"}, "Tools")

	status, body := getJSON(t, env, http.MethodPost, "/api/v1/apps/app-1/downloads", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["totalDownloads"])

	status, body = getJSON(t, env, http.MethodPost, "/api/v1/apps/app-1/downloads", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["totalDownloads"])

	status, _ = getJSON(t, env, http.MethodPost, "/api/v1/apps/missing/downloads", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminLifecycle(t *testing.T) {
	env := setupEnv(t)

	createFields := map[string]string{
		"title":              "Space Trader",
		"description":        "Trade across the galaxy",
		"platform":           "Windows",
		"category":           "Simulation",
		"tags":               "space,trading,indie",
		"isPaid":             "true",
		"price":              "9.99",
		"downloadLink":       "https://dl.example.com/space.zip",
		"size":               "1.2 GB",
		"sizeValue":          "1228800",
		"systemRequirements": `{"os":"Windows 10","ram":"8 GB"}`,
	}

	// No token at all
	body, contentType := multipartBody(t, createFields, 2, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/apps", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Authenticated but not an admin
	userToken := registerAndLogin(t, env, "mortal")
	body, contentType = multipartBody(t, createFields, 2, true)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/apps", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	adminToken := registerAndLogin(t, env, "admin")
	promoteToAdmin(t, env, "admin")

	// 16 comma-separated tags are rejected with a validation error
	tooManyTags := make([]string, 16)
	for i := range tooManyTags {
		tooManyTags[i] = fmt.Sprintf("tag%d", i)
	}
	badFields := map[string]string{}
	for k, v := range createFields {
		badFields[k] = v
	}
	badFields["tags"] = strings.Join(tooManyTags, ",")
	body, contentType = multipartBody(t, badFields, 1, false)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/apps", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Successful create
	body, contentType = multipartBody(t, createFields, 2, true)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/apps", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var createResp map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&createResp))
	resp.Body.Close()
	created := createResp["app"].(map[string]interface{})
	appID := created["id"].(string)
	assert.NotEmpty(t, appID)
	assert.Equal(t, "Space Trader", created["title"])
	assert.Equal(t, "Native", created["architecture"])
	thumbnails := created["thumbnails"].([]interface{})
	assert.Len(t, thumbnails, 2)
	assert.Contains(t, thumbnails[0].(string), "/media/")
	assert.NotEmpty(t, created["coverImg"])
	category := created["category"].(map[string]interface{})
	assert.Equal(t, "Simulation", category["name"])

	// Partial update: only the supplied field changes
	updateBody, updateType := multipartBody(t, map[string]string{"title": "Space Trader Deluxe"}, 0, false)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/apps/"+appID, updateBody)
	req.Header.Set("Content-Type", updateType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updateResp map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&updateResp))
	resp.Body.Close()
	updated := updateResp["app"].(map[string]interface{})
	assert.Equal(t, "Space Trader Deluxe", updated["title"])
	assert.Equal(t, "Windows", updated["platform"])
	assert.Equal(t, float64(9.99), updated["price"])

	// Update of an unknown id is 404
	updateBody, updateType = multipartBody(t, map[string]string{"title": "Nope"}, 0, false)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/apps/missing", updateBody)
	req.Header.Set("Content-Type", updateType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = env.app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Delete, then verify the app is gone
	status, _ := getJSON(t, env, http.MethodDelete, "/api/v1/admin/apps/"+appID, adminToken)
	assert.Equal(t, http.StatusOK, status)

	status, _ = getJSON(t, env, http.MethodGet, "/api/v1/apps/"+appID, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = getJSON(t, env, http.MethodDelete, "/api/v1/admin/apps/"+appID, adminToken)
	assert.Equal(t, http.StatusNotFound, status)
}
