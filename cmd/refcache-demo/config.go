package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type config struct {
	Addr    string `env:"REFCACHE_ADDR" envDefault:":8080"`
	Root    string `env:"REFCACHE_ROOT" envDefault:"."`
	Workers int    `env:"REFCACHE_WORKERS" envDefault:"4"`
	Reads   int    `env:"REFCACHE_READS" envDefault:"200"`
	Serve   bool   `env:"REFCACHE_SERVE" envDefault:"false"`

	LeakTracing  bool          `env:"REFCACHE_LEAK_TRACING" envDefault:"true"`
	DrainTimeout time.Duration `env:"REFCACHE_DRAIN_TIMEOUT" envDefault:"2500ms"`
	OpenTimeout  time.Duration `env:"REFCACHE_OPEN_TIMEOUT" envDefault:"0s"`

	LogLevel      string `env:"REFCACHE_LOG_LEVEL" envDefault:"info"`
	TraceExporter string `env:"REFCACHE_TRACE_EXPORTER" envDefault:"none"`
}

// loadConfig reads the configuration from the environment, after loading
// a .env file from the working directory if one exists.
func loadConfig() (config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Workers < 1 {
		return config{}, fmt.Errorf("REFCACHE_WORKERS must be positive, got %d", cfg.Workers)
	}
	if cfg.Reads < 0 {
		return config{}, fmt.Errorf("REFCACHE_READS must not be negative, got %d", cfg.Reads)
	}
	return cfg, nil
}
