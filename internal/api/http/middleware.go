package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/weathervault/weathervault/internal/auth"
	"github.com/weathervault/weathervault/internal/store"
)

const localsUserKey = "currentUser"

// AuthUser is the resolved caller identity attached to authenticated
// requests. The password hash never travels with it.
type AuthUser struct {
	ID    string
	Email string
}

// requireAuth gates a route behind a bearer token. The token must verify and
// its user id must still resolve to an existing user; every failure mode is a
// plain 401 with no detail about which check tripped.
func requireAuth(tokens *auth.TokenManager, users store.UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, no token")
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		userID, err := tokens.Verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, token failed")
		}

		user, err := users.UserByID(c.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, token failed")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during authorization.")
		}

		c.Locals(localsUserKey, AuthUser{ID: user.ID, Email: user.Email})
		return c.Next()
	}
}

// currentUser returns the identity attached by requireAuth.
func currentUser(c *fiber.Ctx) (AuthUser, bool) {
	user, ok := c.Locals(localsUserKey).(AuthUser)
	return user, ok
}
