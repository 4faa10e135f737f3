// Command server runs statusfeed behind a local HTTP and WebSocket bridge.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"statusfeed/internal/bootstrap"
	"statusfeed/internal/config"
	"statusfeed/internal/server"
)

func main() {
	seedPosts := flag.Int("seed", -1, "Number of demo posts to create (overrides SEED_DEMO_POSTS)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedDemoPosts: *seedPosts})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv := server.NewServer(cfg, rt.App)
	runErr := srv.Run()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Printf("Runtime shutdown error: %v", err)
	}

	if runErr != nil {
		log.Fatalf("Server error: %v", runErr)
	}
	log.Println("Server stopped")
}
