// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env                 string  `mapstructure:"APP_ENV"`
	Port                string  `mapstructure:"PORT"`
	LogLevel            string  `mapstructure:"LOG_LEVEL"`
	DefaultAvatarURL    string  `mapstructure:"DEFAULT_AVATAR_URL"`
	LoginLatencyMS      int     `mapstructure:"LOGIN_LATENCY_MS"`
	FeatureFlags        string  `mapstructure:"FEATURE_FLAGS"`
	SeedDemoPosts       int     `mapstructure:"SEED_DEMO_POSTS"`
	SubscriberBuffer    int     `mapstructure:"SUBSCRIBER_BUFFER"`
	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from an optional .env file,
// config.yml, a profile-specific config.<APP_ENV>.yml and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Println("Config file not found; using environment variables and defaults")
	}

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DEFAULT_AVATAR_URL", "https://randomuser.me/api/portraits/men/44.jpg")
	viper.SetDefault("LOGIN_LATENCY_MS", 0)
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("SEED_DEMO_POSTS", 0)
	viper.SetDefault("SUBSCRIBER_BUFFER", 16)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// LoginLatency returns the simulated sign-in latency.
func (c *Config) LoginLatency() time.Duration {
	return time.Duration(c.LoginLatencyMS) * time.Millisecond
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and in range.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if c.LoginLatencyMS < 0 {
		return errors.New("LOGIN_LATENCY_MS must not be negative")
	}
	if c.SeedDemoPosts < 0 {
		return errors.New("SEED_DEMO_POSTS must not be negative")
	}
	if c.SubscriberBuffer < 1 {
		return errors.New("SUBSCRIBER_BUFFER must be at least 1")
	}
	if c.TracingEnabled {
		if c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
			return fmt.Errorf("TRACING_EXPORTER must be stdout or otlp; got %q", c.TracingExporter)
		}
		if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
			return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
		}
	}

	if c.IsProduction() {
		if c.SeedDemoPosts > 0 {
			return errors.New("SEED_DEMO_POSTS must be 0 in production")
		}
		if c.LogLevel == "debug" {
			log.Println("WARNING: LOG_LEVEL is 'debug' in production.")
		}
	}

	return nil
}
