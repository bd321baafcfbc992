package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/radiowave/backend/config"
	"github.com/radiowave/backend/datastore"
	"github.com/radiowave/backend/ratings"
)

func main() {
	// .env is optional; the environment itself always wins
	_ = godotenv.Load()

	cfg := config.New()

	store := datastore.New(cfg)
	if err := store.Connect(context.Background()); err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	service := ratings.NewService(store)
	router := NewHTTPRouter(store, service)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		slog.Info("server starting", "addr", addr, "database", store.Type())
		if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// signal.Notify requires the channel to be buffered
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := router.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := store.Close(); err != nil {
		slog.Error("error during shutdown", "error", err)
		os.Exit(1)
	}
}
