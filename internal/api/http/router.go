package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/bem-health/admin-api/internal/api/http/handlers"
	"github.com/bem-health/admin-api/internal/auth"
	"github.com/bem-health/admin-api/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AdminUsers     *handlers.AdminUsersHandler
	Resources      *handlers.ResourcesHandler
	AuthMiddleware *auth.AuthMiddleware
	Gate           *auth.RoleGate
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Fixed paths are registered before the
// /api/:resource catch-all.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	required := cfg.AuthMiddleware.Required

	registerAuthRoutes(app.Group("/api/auth"), cfg.Auth, required)
	registerAuthRoutes(app.Group(""), cfg.Auth, required)

	super := cfg.Gate.Named(auth.GateSuper)
	admins := app.Group("/api/admin-users")
	admins.Get("/", required, super, cfg.AdminUsers.List)
	admins.Post("/", required, super, cfg.AdminUsers.Create)
	admins.Get("/:id", required, super, cfg.AdminUsers.Get)
	admins.Put("/:id", required, super, cfg.AdminUsers.Update)
	admins.Delete("/:id", required, super, cfg.AdminUsers.Delete)
	admins.Put("/:id/password", required, super, cfg.AdminUsers.ResetPassword)

	app.Get("/api/public/:resource", cfg.AuthMiddleware.Optional, cfg.Resources.PublicList)

	resources := app.Group("/api/:resource")
	resources.Get("/", required, cfg.Resources.List)
	resources.Post("/", required, cfg.Resources.Create)
	resources.Get("/:id", required, cfg.Resources.Get)
	resources.Put("/:id", required, cfg.Resources.Update)
	resources.Delete("/:id", required, cfg.Resources.Delete)
}

func registerAuthRoutes(r fiber.Router, h *handlers.AuthHandler, required fiber.Handler) {
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Get("/verify", required, h.Verify)
	r.Post("/logout", required, h.Logout)
	r.Post("/change-password", required, h.ChangePassword)
}
