/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load (or create) the TOML config
  3. Initialize the SQLite store
  4. Wire fetcher, cache facade, handler, router, scheduler
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: config.toml)
  -port    HTTP server port (overrides config when set)
  -db      SQLite database path (overrides config when set)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresh scheduler (waits for an in-flight refresh)
  2. Stop accepting new connections, drain requests (30s timeout)
  3. Close the database
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribe/study-engine/api"
	"github.com/scribe/study-engine/cache"
	"github.com/scribe/study-engine/config"
	"github.com/scribe/study-engine/sheets"
	"github.com/scribe/study-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFileName, "config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	loc := cfg.Location()

	store, err := sqlite.New(cfg.DBPath, loc)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	fetcher := sheets.NewFetcher(sheets.Config{
		Timeout: time.Duration(cfg.FetchTimeoutSecs) * time.Second,
		Retries: cfg.FetchRetries,
		Backoff: time.Duration(cfg.FetchBackoffMS) * time.Millisecond,
	})

	c := cache.New(cache.Config{
		Store:      store,
		Fetcher:    fetcher,
		Location:   loc,
		MonthlyKey: cfg.MonthlyKey,
		DailyKey:   cfg.DailyKey,
	})

	handler := api.NewHandler(c, cfg.SourceURL)
	router := api.NewRouter(handler, cfg.AuthToken)

	scheduler := api.NewRefreshScheduler(c, cfg.SourceURL, cfg.RefreshSpec)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start refresh scheduler: %v", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
