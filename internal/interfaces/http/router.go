package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Registers   *cashdrawer.RegisterUseCase
	Lifecycle   *cashdrawer.LifecycleUseCase
	Recon       *cashdrawer.ReconciliationUseCase
	RateLimiter *OrgRateLimiter // nil = sin límite
	Health      func(ctx context.Context) error
	JWTSecret   string
	JWTIssuer   string
	ServiceName string
	Log         zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Health != nil {
			if err := deps.Health(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": deps.ServiceName, "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	if deps.RateLimiter != nil {
		protected.Use(deps.RateLimiter.Middleware())
	}

	cash := protected.Group("/cash-registers")
	h := NewCashHandler(deps.Registers, deps.Lifecycle, deps.Recon, deps.Log)
	adminOnly := RequireRole(RoleAdmin)
	anyRole := RequireRole(RoleAdmin, RoleSupervisor, RoleCajero)

	cash.Post("/", adminOnly, h.Create)
	cash.Get("/", anyRole, h.List)
	cash.Get("/:id", anyRole, h.Get)
	cash.Delete("/:id", adminOnly, h.Delete)
	cash.Post("/:id/open", anyRole, h.Open)
	cash.Post("/:id/close", anyRole, h.Close)
	cash.Post("/:id/movements", anyRole, h.PostMovement)
	cash.Post("/:id/repair", adminOnly, h.Repair)
	cash.Get("/:id/sessions", anyRole, h.ListSessions)
	cash.Get("/:id/sessions/:sessionId", anyRole, h.GetSession)
	cash.Get("/:id/sessions/:sessionId/movements", anyRole, h.ListMovements)
	cash.Get("/:id/sessions/:sessionId/reconciliation", anyRole, h.Reconcile)
}
