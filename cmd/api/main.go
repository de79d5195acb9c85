package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cardvault-api/internal/app"
	"cardvault-api/internal/config"
	"cardvault-api/internal/handler"
	"cardvault-api/internal/middleware"
	"cardvault-api/internal/router"
	"cardvault-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting CardVault API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	economy, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize economy: %v", err)
	}
	defer economy.Close()

	// Pending trade requests expire in the background
	expiry := service.NewTradeExpiryScheduler(economy.Service, service.ExpiryConfig{
		Interval: cfg.Economy.SweepInterval,
	})
	expiry.Start()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, economy.Service)
	economyHandler := handler.NewEconomyHandler(economy.Service)
	adminHandler := handler.NewAdminHandler(economy.Service, cfg.Store.Type)

	authCfg := middleware.AuthConfig{
		APIKeys:   cfg.Economy.APIKeys,
		AdminKeys: cfg.Economy.AdminKeys,
	}
	routes := router.Config{
		Handler:        healthHandler,
		EconomyHandler: economyHandler,
		AdminHandler:   adminHandler,
	}
	if authCfg.Enabled() {
		routes.AuthMiddleware = middleware.NewAuthMiddleware(authCfg)
		routes.AdminMiddleware = middleware.NewAdminMiddleware(authCfg)
	} else {
		log.Println("Warning: no API_KEYS or ADMIN_KEYS configured, authentication is disabled")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.New(routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Stop the sweeper after in-flight requests drain
	expiry.Stop()

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
