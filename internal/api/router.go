package api

import (
	"smishing-guard/docs"
	"smishing-guard/internal/api/handlers"
	"smishing-guard/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	analyzeHandler *handlers.AnalyzeHandler,
	analysisHandler *handlers.AnalysisHandler,
	cfg *config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "smishing-guard",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				appLogger.Error("Unhandled request error",
					zap.String("path", c.Path()),
					zap.Error(err),
				)
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	app.Use(logger.New())

	// importing docs registers the swagger document
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// the mobile client posts here directly
	app.Post("/analyze", analyzeHandler.Analyze)

	api := app.Group("/api/v1")
	api.Get("/analyses", analysisHandler.ListAnalyses)
	api.Get("/index/stats", analysisHandler.IndexStats)

	return app
}
