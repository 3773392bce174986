package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// RequireStaff ensures the caller holds platform staff privilege.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil || !principal.User.IsPlatformStaff() {
			return fiber.NewError(http.StatusForbidden, "platform staff required")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures the caller is signed in.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
