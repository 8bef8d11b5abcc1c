package middleware

import (
	"log"
	"strings"

	"appstore/internal/models"
	"appstore/internal/repositories"
	"appstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserKey is the locals key under which AuthRequired stores the
// authenticated *models.User.
const UserKey = "user"

// AuthRequired is a Fiber middleware that checks for a valid JWT token
// and loads the full user record into the request locals, so downstream
// handlers see the current role and purchase set rather than stale
// token claims.
func AuthRequired(authService *services.AuthService, userRepo repositories.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token",
			})
		}

		userID, _ := claims["user_id"].(string)
		user, err := userRepo.GetByID(userID)
		if err != nil {
			log.Printf("Failed to load user %s from token: %v", userID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token",
			})
		}

		c.Locals(UserKey, user)
		c.Locals("user_id", user.ID)
		c.Locals("username", user.Username)

		return c.Next()
	}
}

// AdminRequired gates a route group to users with the admin role. It
// must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(UserKey).(*models.User)
		if !ok || !user.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Admin role is required",
			})
		}
		return c.Next()
	}
}
