package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/booking-service/internal/api/http/handlers"
	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Bookings       *handlers.BookingsHandler
	Rooms          *handlers.RoomsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	adminOnly := auth.RequireRole(domain.UserRoleAdmin)

	bookings := api.Group("/bookings")
	bookings.Post("/", cfg.Bookings.Create)
	bookings.Get("/", cfg.Bookings.List)
	bookings.Get("/upcoming", cfg.Bookings.Upcoming)
	bookings.Get("/active", cfg.Bookings.Active)
	bookings.Get("/user/:userId", cfg.Bookings.ByUser)
	bookings.Get("/room/:roomId", cfg.Bookings.ByRoom)
	bookings.Get("/:id", cfg.Bookings.Get)
	bookings.Put("/:id", cfg.Bookings.Update)
	bookings.Delete("/:id", cfg.Bookings.Delete)

	rooms := api.Group("/rooms")
	rooms.Get("/", cfg.Rooms.List)
	rooms.Get("/available/count", cfg.Rooms.AvailableCount)
	rooms.Get("/:id", cfg.Rooms.Get)
	rooms.Post("/", adminOnly, cfg.Rooms.Create)
	rooms.Put("/:id", adminOnly, cfg.Rooms.Update)
	rooms.Delete("/:id", adminOnly, cfg.Rooms.Delete)

	users := api.Group("/users")
	users.Get("/", adminOnly, cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", adminOnly, cfg.Users.Delete)

	api.Post("/admin/sweep", adminOnly, cfg.Admin.Sweep)
}
