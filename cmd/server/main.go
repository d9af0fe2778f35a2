// Package main is the entry point for the FleetCal calendar sync server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetcal/backend/internal/api"
	"github.com/fleetcal/backend/internal/calendar"
	"github.com/fleetcal/backend/internal/config"
	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg := config.Load()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	log.Printf("Starting FleetCal calendar sync server (version: %s)...", version)

	// Initialize database
	dbPath := cfg.DataDir + "/fleetcal.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories
	repos := api.Repositories{
		Accounts: storage.NewAccountRepository(db),
		Vehicles: storage.NewVehicleRepository(db),
		Bookings: storage.NewBookingRepository(db),
		Feeds:    storage.NewFeedRepository(db),
	}

	// Initialize sync service and scheduler
	syncService := calendar.NewSyncService(repos.Feeds, repos.Bookings, repos.Vehicles)
	scheduler := calendar.NewScheduler(syncService, hub, cfg.SyncIntervalMin)

	if err := scheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start sync scheduler: %v", err)
	}

	// Initialize HTTP router
	router := api.NewRouter(db, repos, hub, syncService)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
