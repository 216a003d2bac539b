package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"naturequest/internal/activity"
	"naturequest/internal/config"
	"naturequest/internal/database"
	"naturequest/internal/handlers"
	"naturequest/internal/roster"
	"naturequest/internal/security"
	"naturequest/internal/service"
	"naturequest/internal/storage"
)

// demoTeacherID owns the classes created by SEED_DEMO_DATA
const demoTeacherID = "demo-teacher"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	ctx := context.Background()

	// Relational database (supports sqlite, postgres, mysql)
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	userService := service.NewUserService(db)
	if err := userService.SeedItems(ctx); err != nil {
		log.Printf("Warning: Failed to seed item catalog: %v", err)
	}

	// Roster state
	adapter, err := storage.Open(ctx, cfg, db)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.StorageBackend, err)
	}
	defer adapter.Close()

	hub := activity.NewHub()
	store := roster.New(roster.Options{
		Flush:      roster.Flusher(adapter),
		OnActivity: hub.Publish,
	})
	if err := store.Load(ctx, adapter); err != nil {
		log.Fatalf("Failed to load roster: %v", err)
	}
	log.Printf("Roster loaded from %s storage", cfg.StorageBackend)

	if cfg.SeedDemoData {
		seeded, err := store.SeedDemo(ctx, demoTeacherID)
		if err != nil {
			log.Printf("Warning: Failed to seed demo data: %v", err)
		} else if seeded {
			log.Println("Demo classes seeded")
		}
	}

	// Services
	authService := service.NewAuthService(cfg, userService)
	if !authService.OAuthEnabled() {
		log.Println("Microsoft login disabled: AZURE_CLIENT_ID or AZURE_CLIENT_SECRET not set")
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.Debug)
	if err != nil {
		log.Printf("Warning: Email notifications disabled: %v", err)
	}
	backupService := service.NewBackupService(store)

	limiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer limiter.Stop()

	// Handlers
	middleware := handlers.NewMiddleware(authService, limiter)
	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, handlers.Handlers{
		Middleware: middleware,
		Auth:       handlers.NewAuthHandler(authService, store, cfg.OAuthRedirectBaseURL, cfg.AppBaseURL),
		Users:      handlers.NewUserHandler(userService),
		Roster:     handlers.NewRosterHandler(store, emailService),
		Feed:       handlers.NewFeedHandler(store, hub),
		Admin:      handlers.NewAdminHandler(backupService),
	})

	handler := handlers.Logging(middleware.RateLimit(mux))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if err := store.Save(shutdownCtx, adapter); err != nil {
		log.Printf("Error saving roster: %v", err)
	}
}
