// Package api exposes the planning dashboard and pipeline controls over
// HTTP.
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"invplan-backend/internal/audit"
	"invplan-backend/internal/auth"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	JWTSecret   string
	CORSOrigins string
	Auth        *auth.Handler
	Reports     Reporter
	Facts       store.FactRepo
	Runner      Runner
	Runs        *audit.Recorder
	Ping        func(ctx context.Context) error
	Log         *logger.Logger
}

// NewApp builds the fiber app with every route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(d.Log),
		BodyLimit:    32 * 1024 * 1024,
	})

	origins := strings.Split(d.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	app.Get("/healthz", HealthHandler(d.Ping))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	Register(app, d)
	return app
}

func Register(app *fiber.App, d Deps) {
	log := d.Log.With("component", "API")
	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", d.Auth.RegisterAdmin())
	api.Post("/auth/login", d.Auth.Login())

	protected := api.Group("", auth.JWTMiddleware(d.JWTSecret))
	protected.Get("/auth/me", d.Auth.Me())

	// Read side
	protected.Get("/planning", PlanningHandler(d.Reports, log))
	protected.Get("/planning/info", InfoHandler(d.Reports, log))
	protected.Get("/inventory/latest", LatestInventoryHandler(d.Facts, log))
	protected.Get("/sync/runs", audit.ListRunsHandler(d.Runs))

	// Admin controls
	admin := protected.Group("", auth.RequireRole(models.RoleAdmin))
	admin.Post("/users", d.Auth.CreateUser())
	admin.Post("/sync/run", RunHandler(d.Runner, log))
	admin.Post("/sync/sources/:name", RunSourceHandler(d.Runner, log))
	admin.Post("/snapshots/build", BuildSnapshotHandler(d.Runner, log))
	admin.Post("/inventory/upload", UploadInventoryHandler(d.Runner, log))
}

// ErrorHandler renders fiber errors as {"error": message} and hides
// everything else behind a generic 500.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
		}
		log.Error("unexpected error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
		})
	}
}

// GET /healthz
func HealthHandler(ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
