package middleware

import (
	"strings"

	"go-amana-aap/internal/model"
	"go-amana-aap/internal/repository"
	"go-amana-aap/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the JWT and loads the acting user into the request
// context. Engine operations always receive the actor explicitly; nothing
// downstream reads ambient session state.
func RequireAuth(userRepo repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := jwt.ValidateToken(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		user, err := userRepo.FindByID(claims.UserID)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "User not found"})
		}
		if !user.IsActive {
			return c.Status(401).JSON(fiber.Map{"error": "User account is inactive"})
		}

		c.Locals("current_user", user)
		return c.Next()
	}
}

// RequireRole restricts a route to one or more roles.
func RequireRole(roles ...model.RoleCode) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("current_user").(*model.User)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No authenticated user"})
		}

		for _, r := range roles {
			if user.Role == r {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires role " + rolesList(roles),
		})
	}
}

func rolesList(roles []model.RoleCode) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
