package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpapi "github.com/weathervault/weathervault/internal/api/http"
	"github.com/weathervault/weathervault/internal/auth"
	"github.com/weathervault/weathervault/internal/config"
	"github.com/weathervault/weathervault/internal/store"
	"github.com/weathervault/weathervault/internal/weather"
	"github.com/weathervault/weathervault/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Postgres store; opens the pool and applies embedded migrations.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer pg.Close()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	service := weather.NewService(provider)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	app := httpapi.NewApp(httpapi.Deps{
		Weather: service,
		Users:   pg,
		Cities:  pg,
		Tokens:  tokens,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal.
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
