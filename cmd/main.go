package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantfeed/signal-scout/internal/app"
	"github.com/quantfeed/signal-scout/internal/config"
	"github.com/quantfeed/signal-scout/internal/database"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load config from %s: %v", *configFile, err)
	}
	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			logger.Printf("config: %s", p)
		}
		logger.Fatalf("invalid configuration in %s", *configFile)
	}

	// Initialize database
	if err := database.InitDatabase(cfg.Database.DSN); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("signal-scout starting with %d source(s)", len(cfg.Sources))
	if err := a.Run(ctx); err != nil {
		logger.Fatalf("application error: %v", err)
	}
	logger.Printf("shutdown complete")
}
