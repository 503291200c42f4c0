package httpapi

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/weathervault/weathervault/internal/auth"
	"github.com/weathervault/weathervault/internal/store"
)

// credentialsBody is the request body for both register and login.
type credentialsBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// credentialsMessage maps the first validation failure to the client-facing
// message for it.
func credentialsMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch {
		case fe.Tag() == "required":
			return "Please enter all fields"
		case fe.Field() == "Email":
			return "Please enter a valid email address"
		case fe.Field() == "Password":
			return "Password must be at least 6 characters long"
		}
	}
	return "Invalid request body"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// authResponse is returned by register and login: identity plus a fresh token.
type authResponse struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func registerAuthRoutes(router fiber.Router, users store.UserStore, tokens *auth.TokenManager) {
	router.Post("/register", func(c *fiber.Ctx) error {
		var body credentialsBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Please enter all fields")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, credentialsMessage(err))
		}

		email := normalizeEmail(body.Email)

		// Friendlier duplicate check up front; the unique index remains the
		// authority under concurrent registration.
		if _, err := users.UserByEmail(c.Context(), email); err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "User already exists")
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Printf("register: user lookup failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during registration.")
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			log.Printf("register: password hashing failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during registration.")
		}

		user, err := users.CreateUser(c.Context(), email, hash)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				return fiber.NewError(fiber.StatusBadRequest, "Email already registered.")
			}
			log.Printf("register: user creation failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during registration.")
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			log.Printf("register: token issue failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during registration.")
		}

		return c.Status(fiber.StatusCreated).JSON(authResponse{
			ID:    user.ID,
			Email: user.Email,
			Token: token,
		})
	})

	router.Post("/login", func(c *fiber.Ctx) error {
		var body credentialsBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Please enter all fields")
		}
		if body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Please enter all fields")
		}

		// Unknown email and wrong password answer identically so account
		// existence cannot be probed.
		user, err := users.UserByEmail(c.Context(), normalizeEmail(body.Email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid credentials")
			}
			log.Printf("login: user lookup failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during login.")
		}

		if err := auth.CheckPassword(user.PasswordHash, body.Password); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid credentials")
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			log.Printf("login: token issue failed: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Server error during login.")
		}

		return c.JSON(authResponse{
			ID:    user.ID,
			Email: user.Email,
			Token: token,
		})
	})

	router.Get("/profile", requireAuth(tokens, users), func(c *fiber.Ctx) error {
		user, ok := currentUser(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, no token")
		}

		return c.JSON(fiber.Map{
			"_id":   user.ID,
			"email": user.Email,
		})
	})
}
