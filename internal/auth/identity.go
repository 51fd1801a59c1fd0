package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bosphorus-pay/bosphorus_pay/internal/identity"
)

// identityLocalKey is where the JWT middleware stores the resolved identity.
const identityLocalKey = "auth.identity"

// Identity is the resolved caller: who they are, what role they carry, and
// which customer they act as (empty for employees). The core services consume
// this and never authenticate on their own.
type Identity struct {
	UserID     string
	Role       identity.Role
	CustomerID string
}

// IsEmployee reports whether the caller has unconditional access.
func (i Identity) IsEmployee() bool {
	return i.Role == identity.RoleEmployee
}

// StoreIdentity attaches the resolved identity to the request.
func StoreIdentity(c *fiber.Ctx, ident Identity) {
	c.Locals(identityLocalKey, ident)
}

// IdentityFromContext retrieves the identity set by the JWT middleware.
func IdentityFromContext(c *fiber.Ctx) (Identity, bool) {
	ident, ok := c.Locals(identityLocalKey).(Identity)
	return ident, ok
}
