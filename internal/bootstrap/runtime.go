// Package bootstrap turns a loaded configuration into a running App.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"statusfeed/internal/app"
	"statusfeed/internal/config"
	"statusfeed/internal/featureflags"
	"statusfeed/internal/feed"
	"statusfeed/internal/observability"
	"statusfeed/internal/seed"
)

// ServiceVersion is reported to the tracing backend.
const ServiceVersion = "0.1.0"

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoPosts overrides cfg.SeedDemoPosts when not negative.
	SeedDemoPosts int
	// SeedValue makes demo content reproducible. Zero uses the clock.
	SeedValue int64
}

// Runtime is everything the commands need after initialization.
type Runtime struct {
	App *app.App

	shutdownTracing func(context.Context) error
}

// InitRuntime applies logging and tracing settings, builds the App and
// optionally seeds its feed with demo posts.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	observability.SetLevel(cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "statusfeed",
		ServiceVersion: ServiceVersion,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	store := feed.NewStore()

	posts := cfg.SeedDemoPosts
	if opts.SeedDemoPosts >= 0 {
		posts = opts.SeedDemoPosts
	}
	if posts > 0 {
		seeder := seed.NewSeeder(store, seed.Options{
			Posts:       posts,
			MaxComments: 3,
			MaxShares:   5,
			Seed:        opts.SeedValue,
		})
		if _, err := seeder.Run(ctx); err != nil {
			_ = shutdownTracing(ctx)
			return nil, fmt.Errorf("failed to seed demo posts: %w", err)
		}
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	if raw := flags.Raw(); len(raw) > 0 {
		log.Printf("Feature flags: %v", raw)
	}

	a := app.New(app.Options{
		Store:            store,
		Flags:            flags,
		Latency:          cfg.LoginLatency(),
		DefaultAvatarURL: cfg.DefaultAvatarURL,
		SubscriberBuffer: cfg.SubscriberBuffer,
	})

	return &Runtime{App: a, shutdownTracing: shutdownTracing}, nil
}

// Shutdown closes view subscriptions and flushes traces.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.App.Shutdown()
	if err := r.shutdownTracing(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracing: %w", err)
	}
	return nil
}
