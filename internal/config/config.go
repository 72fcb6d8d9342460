// Package config loads kittycore settings from KITTYCORE_* environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage selects and locates the registry store.
type Storage struct {
	Driver      string `env:"KITTYCORE_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"KITTYCORE_SQLITE_PATH"    envDefault:"kittycore.db"`
	PostgresDSN string `env:"KITTYCORE_POSTGRES_DSN"`
}

// Blob selects the snapshot archive target.
type Blob struct {
	Driver       string `env:"KITTYCORE_BLOB_DRIVER"         envDefault:"fs"`
	Root         string `env:"KITTYCORE_BLOB_FS_ROOT"        envDefault:"snapshots"`
	Bucket       string `env:"KITTYCORE_BLOB_S3_BUCKET"`
	Region       string `env:"KITTYCORE_BLOB_S3_REGION"`
	Endpoint     string `env:"KITTYCORE_BLOB_S3_ENDPOINT"`
	Prefix       string `env:"KITTYCORE_BLOB_S3_PREFIX"`
	UsePathStyle bool   `env:"KITTYCORE_BLOB_S3_PATH_STYLE"`
}

// Ledger configures the bundled currency ledger.
type Ledger struct {
	ExistentialDeposit uint64 `env:"KITTYCORE_EXISTENTIAL_DEPOSIT" envDefault:"1"`
}

// Config is the full kittycore configuration.
type Config struct {
	Storage       Storage
	Blob          Blob
	Ledger        Ledger
	LogLevel      string `env:"KITTYCORE_LOG_LEVEL"      envDefault:"info"`
	MetricsAddr   string `env:"KITTYCORE_METRICS_ADDR"`
	TraceExporter string `env:"KITTYCORE_TRACE_EXPORTER" envDefault:"none"`
	RandomSeed    string `env:"KITTYCORE_RANDOM_SEED"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and malformed values.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.Bucket == "" {
			return fmt.Errorf("s3 blob driver requires KITTYCORE_BLOB_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.TraceExporter {
	case "none", "json", "stdout":
	default:
		return fmt.Errorf("unknown trace exporter %q", c.TraceExporter)
	}
	if _, err := c.Seed(); err != nil {
		return err
	}
	_, err := c.Level()
	return err
}

// Seed decodes the hex genesis seed. An empty value yields an empty seed.
func (c Config) Seed() ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(c.RandomSeed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("random seed: %w", err)
	}
	return seed, nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
