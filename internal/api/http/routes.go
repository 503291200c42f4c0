package httpapi

import (
	"errors"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/weathervault/weathervault/internal/auth"
	"github.com/weathervault/weathervault/internal/store"
	"github.com/weathervault/weathervault/internal/weather"
)

var validate = validator.New()

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Weather *weather.Service
	Users   store.UserStore
	Cities  store.CityStore
	Tokens  *auth.TokenManager
}

// NewApp builds the Fiber app with shared middleware, the centralized error
// handler, and all routes registered. main and the tests both start here.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weathervault",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weathervault",
		})
	})

	RegisterRoutes(app, d)
	return app
}

// ErrorHandler converts every handler failure into a JSON {message} body with
// the corresponding status. Unexpected failures are logged with their cause;
// no failure is fatal to the process.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code == fiber.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"message": err.Error(),
	})
}

// saveCityBody is the request body for bookmarking a city. The client posts
// back the weather data it received from a prior search; it is persisted
// verbatim.
type saveCityBody struct {
	Name     string                `json:"name" validate:"required"`
	Current  *weather.Snapshot     `json:"currentWeatherData" validate:"required"`
	Forecast []weather.ForecastDay `json:"forecastData" validate:"required"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api")

	registerAuthRoutes(api.Group("/auth"), d.Users, d.Tokens)

	protected := requireAuth(d.Tokens, d.Users)

	api.Get("/weather/:city", func(c *fiber.Ctx) error {
		city := strings.TrimSpace(c.Params("city"))
		if city == "" {
			return fiber.NewError(fiber.StatusBadRequest, "City name is required")
		}

		snapshot, forecast, err := d.Weather.Search(c.Context(), city)
		if err != nil {
			if errors.Is(err, weather.ErrCityNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "City not found. Please check the spelling.")
			}
			log.Printf("weather search failed for %q: %v", city, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error fetching weather data. Please try again later.")
		}

		return c.JSON(fiber.Map{
			"currentWeatherData": snapshot,
			"forecastData":       forecast,
		})
	})

	api.Post("/weather", protected, func(c *fiber.Ctx) error {
		user, _ := currentUser(c)

		var body saveCityBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "City name and weather data are required to save.")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "City name and weather data are required to save.")
		}

		city, err := d.Cities.SaveCity(c.Context(), user.ID, body.Name, *body.Current, body.Forecast)
		if err != nil {
			if errors.Is(err, store.ErrAlreadySaved) {
				return fiber.NewError(fiber.StatusConflict, "City already saved for this user.")
			}
			log.Printf("save city failed for user %s: %v", user.ID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error saving city to database.")
		}

		return c.Status(fiber.StatusCreated).JSON(city)
	})

	api.Get("/weather", protected, func(c *fiber.Ctx) error {
		user, _ := currentUser(c)

		cities, err := d.Cities.ListCities(c.Context(), user.ID)
		if err != nil {
			log.Printf("list cities failed for user %s: %v", user.ID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error fetching saved cities from database.")
		}
		if cities == nil {
			cities = []store.SavedCity{}
		}

		return c.JSON(cities)
	})

	api.Delete("/weather/:id", protected, func(c *fiber.Ctx) error {
		user, _ := currentUser(c)

		if err := d.Cities.DeleteCity(c.Context(), user.ID, c.Params("id")); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "City not found or you do not have permission to delete it.")
			}
			log.Printf("delete city failed for user %s: %v", user.ID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error deleting city from database.")
		}

		return c.JSON(fiber.Map{
			"message": "City deleted successfully.",
		})
	})
}
