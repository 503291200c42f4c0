package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/weathervault/weathervault/internal/store/migrations"
	"github.com/weathervault/weathervault/internal/weather"
)

// Postgres-reported SQLSTATE for a unique constraint violation.
const uniqueViolationCode = "23505"

// PostgresStore implements UserStore and CityStore on top of database/sql
// with the pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for the given DSN and applies the
// embedded schema migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO users (id, email, password_hash, created_at)
	          VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users
	          WHERE email = $1`

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `SELECT id, email, password_hash, created_at FROM users
	          WHERE id = $1`

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) ListCities(ctx context.Context, userID string) ([]SavedCity, error) {
	query := `SELECT id, user_id, name, current_weather, forecast, created_at
	          FROM saved_cities
	          WHERE user_id = $1
	          ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var cities []SavedCity
	for rows.Next() {
		var (
			city        SavedCity
			currentJSON []byte
			fcJSON      []byte
		)
		if err := rows.Scan(&city.ID, &city.UserID, &city.Name, &currentJSON, &fcJSON, &city.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(currentJSON, &city.Current); err != nil {
			return nil, fmt.Errorf("decode stored snapshot: %w", err)
		}
		if err := json.Unmarshal(fcJSON, &city.Forecast); err != nil {
			return nil, fmt.Errorf("decode stored forecast: %w", err)
		}
		cities = append(cities, city)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cities, nil
}

func (s *PostgresStore) SaveCity(ctx context.Context, userID, name string, current weather.Snapshot, forecast []weather.ForecastDay) (*SavedCity, error) {
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	fcJSON, err := json.Marshal(forecast)
	if err != nil {
		return nil, fmt.Errorf("encode forecast: %w", err)
	}

	city := &SavedCity{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Current:   current,
		Forecast:  forecast,
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO saved_cities (id, user_id, name, current_weather, forecast, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.db.ExecContext(ctx, query, city.ID, city.UserID, city.Name, currentJSON, fcJSON, city.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadySaved
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return city, nil
}

func (s *PostgresStore) DeleteCity(ctx context.Context, userID, cityID string) error {
	// An unparseable id cannot match any row; treat it as absent instead of
	// letting the uuid cast error bubble up as a server failure.
	if _, err := uuid.Parse(cityID); err != nil {
		return ErrNotFound
	}

	// Ownership is part of the predicate: a foreign id and a missing id are
	// indistinguishable to the caller.
	query := `DELETE FROM saved_cities WHERE id = $1 AND user_id = $2`

	res, err := s.db.ExecContext(ctx, query, cityID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
