package api

import (
	"github.com/venkatvisarapu/personal-finance-assistant/docs"
	"github.com/venkatvisarapu/personal-finance-assistant/internal/api/handlers"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/auth"
	"github.com/venkatvisarapu/personal-finance-assistant/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	txHandler *handlers.TransactionHandler,
	uploadHandler *handlers.UploadHandler,
	jwtManager *auth.JWTManager,
	users middleware.UserResolver,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo // importing docs registers the swagger doc via init()
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Public auth routes
	authRoutes := app.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)

	authGate := middleware.AuthMiddleware(jwtManager, users, appLogger)

	transactions := app.Group("/transactions", authGate)
	transactions.Post("", txHandler.Create)
	transactions.Get("", txHandler.List)
	transactions.Get("/stats", txHandler.Stats)
	transactions.Put("/:id", txHandler.Update)
	transactions.Delete("/:id", txHandler.Delete)

	uploads := app.Group("/uploads", authGate)
	uploads.Post("", uploadHandler.Upload)
	uploads.Get("/:id/status", uploadHandler.Status)

	return app
}
