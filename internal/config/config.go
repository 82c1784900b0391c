package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alanyang/prompt-workshop/internal/adapter/gemini"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
)

// Store selects the durable slot backend.
type Store string

const (
	StorePostgres Store = "postgres"
	StoreSQLite   Store = "sqlite"
	StoreMemory   Store = "memory"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Store       Store      `env:"WORKSHOP_STORE" envDefault:"sqlite"`
	DatabaseURL string     `env:"DATABASE_URL"`
	SQLitePath  string     `env:"WORKSHOP_SQLITE_PATH" envDefault:"data/workshop.db"`
	SlotKey     string     `env:"WORKSHOP_SLOT_KEY" envDefault:"dopa-saved-prompts"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	Model        string `env:"WORKSHOP_MODEL"`
	Language     string `env:"WORKSHOP_LANGUAGE" envDefault:"Chinese"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = gemini.DefaultModel
	}
	if cfg.SlotKey == "" {
		cfg.SlotKey = librarysvc.DefaultKey
	}
	cfg.Store = Store(strings.ToLower(string(cfg.Store)))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the storage selection is usable.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when WORKSHOP_STORE=postgres")
		}
	case StoreSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("WORKSHOP_SQLITE_PATH must not be empty when WORKSHOP_STORE=sqlite")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown WORKSHOP_STORE %q (want postgres, sqlite or memory)", cfg.Store)
	}
	return nil
}
