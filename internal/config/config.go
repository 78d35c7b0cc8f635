package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Primary store kinds.
const (
	PrimaryNone   = ""
	PrimaryRedis  = "redis"
	PrimarySQLite = "sqlite"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`

	DataDir      string `env:"DATA_DIR" envDefault:"data"`
	StorePrimary string `env:"STORE_PRIMARY"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix  string `env:"REDIS_PREFIX" envDefault:"tvekamp:"`
	DBPath       string `env:"DB_PATH" envDefault:"data/tvekamp.db"`

	DefaultGameVisible bool          `env:"DEFAULT_GAME_VISIBLE" envDefault:"true"`
	Celebration        time.Duration `env:"CELEBRATION" envDefault:"3s"`

	AdminToken    string `env:"ADMIN_TOKEN"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Load reads an optional dotenv file named by ENV_FILE (default ".env") and
// then parses the environment. Variables already set are not overwritten.
func Load() (*Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnv(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func (c Config) validate() error {
	switch c.StorePrimary {
	case PrimaryNone, PrimaryRedis, PrimarySQLite:
	default:
		return fmt.Errorf("STORE_PRIMARY must be empty, %q or %q, got %q", PrimaryRedis, PrimarySQLite, c.StorePrimary)
	}
	if c.AdminPassword != "" && c.AdminToken == "" {
		return errors.New("ADMIN_PASSWORD requires ADMIN_TOKEN")
	}
	if c.Celebration < 0 {
		return errors.New("CELEBRATION must not be negative")
	}
	return nil
}
