// Command feedsim replays a YAML intent script against a fresh statusfeed
// App and prints the step results and the final view as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"statusfeed/internal/app"
	"statusfeed/internal/bootstrap"
	"statusfeed/internal/config"
	"statusfeed/internal/observability"
	"statusfeed/internal/script"
)

type report struct {
	Script  string          `json:"script"`
	Results []script.Result `json:"results"`
	View    app.View        `json:"view"`
	Error   string          `json:"error,omitempty"`
}

func main() {
	path := flag.String("script", "examples/jane_doe.yml", "Path to the YAML intent script")
	seedPosts := flag.Int("seed", 0, "Number of demo posts to create before running")
	seedValue := flag.Int64("seed-value", 1, "Random seed for demo posts")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall time limit")
	flag.Parse()

	// stdout carries the report.
	log.SetOutput(os.Stderr)
	observability.SetOutput(os.Stderr)

	s, err := script.ParseFile(*path)
	if err != nil {
		log.Fatalf("Failed to load script: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		SeedDemoPosts: *seedPosts,
		SeedValue:     *seedValue,
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	log.Printf("Running script %q (%d steps)", s.Name, len(s.Steps))
	results, runErr := s.Run(ctx, rt.App)

	out := report{Script: s.Name, Results: results, View: rt.App.View()}
	if runErr != nil {
		out.Error = runErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	if err := rt.Shutdown(context.Background()); err != nil {
		log.Printf("Runtime shutdown error: %v", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
