package store

import (
	"context"
	"errors"
	"time"

	"github.com/weathervault/weathervault/internal/weather"
)

var (
	// ErrNotFound is returned when a record is absent, or exists but is not
	// owned by the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken (case-insensitive).
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrAlreadySaved is returned when a user saves the same city twice.
	ErrAlreadySaved = errors.New("city already saved for this user")
)

// User is a persisted identity record. PasswordHash never leaves the
// store/auth boundary; API responses carry only ID and Email.
type User struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SavedCity is a per-user bookmark with the weather data embedded verbatim
// as captured at save time.
type SavedCity struct {
	ID        string                `json:"_id"`
	UserID    string                `json:"userId"`
	Name      string                `json:"name"`
	Current   weather.Snapshot      `json:"currentWeatherData"`
	Forecast  []weather.ForecastDay `json:"forecastData"`
	CreatedAt time.Time             `json:"createdAt"`
}

// UserStore is the contract for persisted user records.
type UserStore interface {
	// CreateUser inserts a new user. Email must already be normalized
	// (lowercased, trimmed); a uniqueness violation yields ErrDuplicateEmail.
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
}

// CityStore is the contract for per-user saved cities.
type CityStore interface {
	// ListCities returns the user's saved cities, newest first.
	ListCities(ctx context.Context, userID string) ([]SavedCity, error)
	// SaveCity inserts a bookmark; a (userID, name) duplicate yields ErrAlreadySaved.
	SaveCity(ctx context.Context, userID, name string, current weather.Snapshot, forecast []weather.ForecastDay) (*SavedCity, error)
	// DeleteCity removes a bookmark owned by userID; a mismatched owner or
	// nonexistent id both yield ErrNotFound.
	DeleteCity(ctx context.Context, userID, cityID string) error
}
