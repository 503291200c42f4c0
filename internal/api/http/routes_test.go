package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/weathervault/weathervault/internal/auth"
	"github.com/weathervault/weathervault/internal/store"
	"github.com/weathervault/weathervault/internal/weather"
)

const testSecret = "test-signing-secret"

// stubProvider serves canned weather data so the HTTP tests never leave the
// process.
type stubProvider struct {
	err error
}

func (p *stubProvider) FetchCurrent(_ context.Context, city string) (weather.Snapshot, error) {
	if p.err != nil {
		return weather.Snapshot{}, p.err
	}
	return weather.Snapshot{
		City:        city,
		Temperature: 14.2,
		Description: "broken clouds",
		Humidity:    70,
		WindSpeed:   3.1,
		Icon:        "04d",
	}, nil
}

func (p *stubProvider) FetchForecast(context.Context, string) ([]weather.ForecastSample, error) {
	if p.err != nil {
		return nil, p.err
	}
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	return []weather.ForecastSample{
		{Timestamp: tomorrow.Add(6 * time.Hour), TempMin: 8, TempMax: 12, Description: "clear sky", Icon: "01d"},
		{Timestamp: tomorrow.Add(15 * time.Hour), TempMin: 7, TempMax: 14, Description: "few clouds", Icon: "02d"},
	}, nil
}

func newTestApp(provider weather.Provider) (*fiber.App, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	app := NewApp(Deps{
		Weather: weather.NewService(provider),
		Users:   mem,
		Cities:  mem,
		Tokens:  auth.NewTokenManager(testSecret, time.Hour),
	})
	return app, mem
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			decoded = nil
		}
	}
	return resp, decoded
}

func registerUser(t *testing.T, app *fiber.App, email, password string) (id, token string) {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%v)", email, resp.StatusCode, body)
	}

	id, _ = body["_id"].(string)
	token, _ = body["token"].(string)
	if id == "" || token == "" {
		t.Fatalf("register %s: missing _id or token in %v", email, body)
	}
	return id, token
}

func TestRegisterLoginProfile(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	userID, _ := registerUser(t, app, "alice@example.com", "sekret1")

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "sekret1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["_id"] != userID {
		t.Errorf("login returned id %v, registered as %v", body["_id"], userID)
	}

	token, _ := body["token"].(string)
	resp, body = doJSON(t, app, http.MethodGet, "/api/auth/profile", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["_id"] != userID || body["email"] != "alice@example.com" {
		t.Errorf("unexpected profile body: %v", body)
	}
}

func TestRegisterValidation(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"missing password", fiber.Map{"email": "a@b.com"}},
		{"missing email", fiber.Map{"password": "sekret1"}},
		{"bad email shape", fiber.Map{"email": "not-an-email", "password": "sekret1"}},
		{"short password", fiber.Map{"email": "a@b.com", "password": "abc"}},
	}

	for _, tc := range cases {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
	}
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	registerUser(t, app, "bob@example.com", "sekret1")

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":    "BOB@Example.com",
		"password": "different-password",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d (%v)", resp.StatusCode, body)
	}
}

func TestLoginDoesNotLeakAccountExistence(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	registerUser(t, app, "carol@example.com", "sekret1")

	respWrongPass, bodyWrongPass := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "carol@example.com",
		"password": "wrong-password",
	})
	respNoUser, bodyNoUser := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "ghost@example.com",
		"password": "whatever1",
	})

	if respWrongPass.StatusCode != http.StatusBadRequest || respNoUser.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400/400, got %d/%d", respWrongPass.StatusCode, respNoUser.StatusCode)
	}
	if bodyWrongPass["message"] != bodyNoUser["message"] {
		t.Errorf("error messages differ: %v vs %v", bodyWrongPass["message"], bodyNoUser["message"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodGet, "/api/weather"},
		{http.MethodPost, "/api/weather"},
		{http.MethodDelete, "/api/weather/some-id"},
	}

	for _, p := range paths {
		resp, _ := doJSON(t, app, p.method, p.path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", p.method, p.path, resp.StatusCode)
		}
	}

	// A token that is signed correctly but already expired is rejected too.
	expired, err := auth.NewTokenManager(testSecret, -1*time.Minute).Issue("some-user")
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}
	resp, _ := doJSON(t, app, http.MethodGet, "/api/auth/profile", expired, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expired token: expected 401, got %d", resp.StatusCode)
	}
}

func TestTokenForDeletedUserRejected(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	// Valid signature, but the user id resolves to nobody.
	tok, err := auth.NewTokenManager(testSecret, time.Hour).Issue("no-such-user")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	resp, _ := doJSON(t, app, http.MethodGet, "/api/auth/profile", tok, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unresolvable user, got %d", resp.StatusCode)
	}
}

func TestWeatherSearch(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	resp, body := doJSON(t, app, http.MethodGet, "/api/weather/London", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, body)
	}

	current, ok := body["currentWeatherData"].(map[string]any)
	if !ok {
		t.Fatalf("missing currentWeatherData in %v", body)
	}
	if current["city"] != "London" || current["icon"] != "04d" {
		t.Errorf("unexpected snapshot: %v", current)
	}

	forecast, ok := body["forecastData"].([]any)
	if !ok || len(forecast) != 1 {
		t.Fatalf("expected 1 aggregated forecast day, got %v", body["forecastData"])
	}
	day, _ := forecast[0].(map[string]any)
	if day["temp_min"] != 7.0 || day["temp_max"] != 14.0 {
		t.Errorf("expected widened min/max 7/14, got %v", day)
	}
}

func TestWeatherSearch_CityNotFound(t *testing.T) {
	app, _ := newTestApp(&stubProvider{err: weather.ErrCityNotFound})

	resp, body := doJSON(t, app, http.MethodGet, "/api/weather/Atlantis", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if msg, _ := body["message"].(string); msg == "" {
		t.Error("expected a human-readable message in the 404 body")
	}
}

func TestWeatherSearch_ProviderFailure(t *testing.T) {
	app, _ := newTestApp(&stubProvider{err: fmt.Errorf("upstream exploded")})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/weather/London", "", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func searchBody(t *testing.T, app *fiber.App, city string) (map[string]any, []any) {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodGet, "/api/weather/"+city, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search %s: expected 200, got %d", city, resp.StatusCode)
	}
	current, _ := body["currentWeatherData"].(map[string]any)
	forecast, _ := body["forecastData"].([]any)
	return current, forecast
}

func TestSaveListDeleteFlow(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	_, token := registerUser(t, app, "dave@example.com", "sekret1")

	current, forecast := searchBody(t, app, "London")

	save := fiber.Map{
		"name":               "London",
		"currentWeatherData": current,
		"forecastData":       forecast,
	}

	resp, body := doJSON(t, app, http.MethodPost, "/api/weather", token, save)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d (%v)", resp.StatusCode, body)
	}
	cityID, _ := body["_id"].(string)
	if cityID == "" {
		t.Fatalf("save response missing _id: %v", body)
	}

	// Saving the same city again conflicts.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/weather", token, save)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate save: expected 409, got %d", resp.StatusCode)
	}

	// Missing fields are rejected up front.
	resp, _ = doJSON(t, app, http.MethodPost, "/api/weather", token, fiber.Map{"name": "Oslo"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("incomplete save: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/weather/"+cityID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/weather/"+cityID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete again: expected 404, got %d", resp.StatusCode)
	}
}

func TestListCitiesNewestFirst(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	_, token := registerUser(t, app, "erin@example.com", "sekret1")

	for _, name := range []string{"Paris", "Tokyo"} {
		current, forecast := searchBody(t, app, name)
		resp, _ := doJSON(t, app, http.MethodPost, "/api/weather", token, fiber.Map{
			"name":               name,
			"currentWeatherData": current,
			"forecastData":       forecast,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("save %s: expected 201, got %d", name, resp.StatusCode)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/weather", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}

	var cities []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&cities); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("expected 2 saved cities, got %d", len(cities))
	}
	if cities[0]["name"] != "Tokyo" || cities[1]["name"] != "Paris" {
		t.Errorf("expected newest-first order, got %v then %v", cities[0]["name"], cities[1]["name"])
	}
}

func TestDeleteForeignCity(t *testing.T) {
	app, _ := newTestApp(&stubProvider{})

	_, ownerToken := registerUser(t, app, "owner@example.com", "sekret1")
	_, otherToken := registerUser(t, app, "other@example.com", "sekret1")

	current, forecast := searchBody(t, app, "Lima")
	resp, body := doJSON(t, app, http.MethodPost, "/api/weather", ownerToken, fiber.Map{
		"name":               "Lima",
		"currentWeatherData": current,
		"forecastData":       forecast,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d", resp.StatusCode)
	}
	cityID, _ := body["_id"].(string)

	// The other user cannot delete it, and learns nothing from the failure.
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/weather/"+cityID, otherToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", resp.StatusCode)
	}

	// The city is still in the owner's list.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/weather", ownerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/weather", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+ownerToken)
	listResp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	defer listResp.Body.Close()

	var cities []map[string]any
	if err := json.NewDecoder(listResp.Body).Decode(&cities); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(cities) != 1 || cities[0]["name"] != "Lima" {
		t.Errorf("expected Lima to survive the foreign delete, got %v", cities)
	}
}
