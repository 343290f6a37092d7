package middleware

import (
	"context"
	"strings"

	"github.com/venkatvisarapu/personal-finance-assistant/internal/models"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locals keys set by AuthMiddleware.
const (
	LocalsUserID = "userID"
	LocalsUser   = "user"
)

// UserResolver loads the authenticated user for the request context.
// The returned value must not carry the password hash.
type UserResolver interface {
	ResolveUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

func AuthMiddleware(jwtManager *auth.JWTManager, users UserResolver, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			logger.Warn("Missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		if strings.HasPrefix(token, "Bearer ") {
			token = strings.TrimPrefix(token, "Bearer ")
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		user, err := users.ResolveUser(c.Context(), userID)
		if err != nil {
			logger.Warn("Token references unknown user", zap.String("user_id", claims.UserID))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(LocalsUserID, userID)
		c.Locals(LocalsUser, user)

		return c.Next()
	}
}
