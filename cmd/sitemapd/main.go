package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/routekit/sitemap/config"
	"github.com/routekit/sitemap/internal/api"
	"github.com/routekit/sitemap/internal/storage"
	"github.com/routekit/sitemap/internal/utils"
)

func main() {
	// Local overrides, ignored when absent
	godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := utils.DefaultLogConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.LogDir = cfg.Log.Dir
	if err := utils.InitLogger(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize storage
	store, err := openStore(cfg)
	if err != nil {
		utils.Fatal(err, "Failed to initialize storage")
	}
	defer store.Close()

	// Initialize database tables
	if err := store.Initialize(); err != nil {
		utils.Fatal(err, "Failed to initialize database tables")
	}

	// Initialize API server with the sitemap extension attached
	server, err := api.NewServer(cfg.Server.Port, store, cfg.SitemapOptions())
	if err != nil {
		utils.Fatal(err, "Failed to initialize server")
	}

	go func() {
		utils.Infof("Starting server on port %d", cfg.Server.Port)
		if err := server.Start(); err != nil {
			utils.Fatal(err, "Failed to start server")
		}
	}()

	waitForShutdown(server)
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return storage.NewPostgresStore(cfg.Database.URL)
	case "sqlite", "":
		return storage.NewSQLiteStore(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func waitForShutdown(server *api.Server) {
	// Handle system signals for shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	utils.Info("Shutting down...")

	// Graceful server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		utils.Error(err, "Error shutting down server")
	}
	utils.Info("Server shut down gracefully")
}
