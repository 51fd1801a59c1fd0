package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bosphorus-pay/bosphorus_pay/internal/auth"
	"github.com/bosphorus-pay/bosphorus_pay/internal/config"
)

// JWTAuth returns a middleware that validates bearer tokens and stores the
// resolved caller identity (user id, role, customer id) on the request.
func JWTAuth(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		ident := auth.IdentityFromClaims(claims)
		if ident.UserID == "" {
			return fiber.NewError(http.StatusUnauthorized, "invalid token subject")
		}

		auth.StoreIdentity(c, ident)
		return c.Next()
	}
}
