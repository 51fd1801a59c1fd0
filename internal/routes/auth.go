package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bosphorus-pay/bosphorus_pay/internal/auth"
)

// RegisterAuthRoutes wires login and token refresh. Both are public; login is
// rate limited per username.
func RegisterAuthRoutes(api fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	grp := api.Group("/auth")
	grp.Post("/login", rateLimiter, h.Login)
	grp.Post("/refresh", h.Refresh)
}
