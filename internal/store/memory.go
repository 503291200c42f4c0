package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weathervault/weathervault/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of UserStore and
// CityStore. It backs handler and service tests; semantics mirror the
// Postgres implementation, including the uniqueness rules.
type MemoryStore struct {
	mu sync.RWMutex

	users map[string]*User // key: user id

	// cities keeps insertion order so "newest first" stays deterministic
	// even when two saves land on the same timestamp.
	cities []*SavedCity
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, email, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return nil, ErrDuplicateEmail
		}
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user

	copied := *user
	return &copied, nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) ListCities(_ context.Context, userID string) ([]SavedCity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first: walk the insertion order backwards.
	var cities []SavedCity
	for i := len(s.cities) - 1; i >= 0; i-- {
		if c := s.cities[i]; c.UserID == userID {
			cities = append(cities, *c)
		}
	}

	return cities, nil
}

func (s *MemoryStore) SaveCity(_ context.Context, userID, name string, current weather.Snapshot, forecast []weather.ForecastDay) (*SavedCity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.cities {
		if c.UserID == userID && c.Name == name {
			return nil, ErrAlreadySaved
		}
	}

	city := &SavedCity{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Current:   current,
		Forecast:  append([]weather.ForecastDay(nil), forecast...),
		CreatedAt: time.Now().UTC(),
	}
	s.cities = append(s.cities, city)

	copied := *city
	return &copied, nil
}

func (s *MemoryStore) DeleteCity(_ context.Context, userID, cityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.cities {
		if c.ID != cityID {
			continue
		}
		if c.UserID != userID {
			return ErrNotFound
		}
		s.cities = append(s.cities[:i], s.cities[i+1:]...)
		return nil
	}
	return ErrNotFound
}
