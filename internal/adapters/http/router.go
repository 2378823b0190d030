package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/geowork/roadpack/internal/pkg/metrics"
)

// SetupRoutes registers all REST routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Request ID
	app.Use(requestid.New())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	// Health & readiness, no timeout: fast internal checks
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 with per-request timeouts (bundle downloads can be big)
	v1 := app.Group("/v1")
	v1.Get("/regions/:region/bundle", timeout.NewWithContext(BundleHandler(deps), 30*time.Second))
	v1.Get("/regions/:region/bundle/:kind", timeout.NewWithContext(BundleHandler(deps), 30*time.Second))
	v1.Get("/regions/:region/calming/nearby", timeout.NewWithContext(CalmingNearbyHandler(deps), 15*time.Second))
	v1.Get("/regions/:region/roundabouts/nearby", timeout.NewWithContext(RoundaboutsNearbyHandler(deps), 15*time.Second))
	v1.Get("/regions/:region/stats", timeout.NewWithContext(RegionStatsHandler(deps), 15*time.Second))
}
