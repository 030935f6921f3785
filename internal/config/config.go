// Package config holds all environment-based configuration for the service.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is populated from AUTHGRID_* environment variables, optionally
// seeded from a .env file.
type Config struct {
	ListenAddr string `env:"AUTHGRID_LISTEN_ADDR" envDefault:":8080"`
	GRPCAddr   string `env:"AUTHGRID_GRPC_ADDR" envDefault:""`

	// PGDSN selects PostgreSQL persistence. Empty falls back to the
	// in-process stores, which lose state on restart.
	PGDSN string `env:"AUTHGRID_PG_DSN"`

	// KeysDir holds the PEM key material for the key exchange endpoints.
	KeysDir string `env:"AUTHGRID_KEYS_DIR" envDefault:"ops/keys"`

	// TicketMasterKey is a hex-encoded 32 byte AES key sealing tickets.
	TicketMasterKey string `env:"AUTHGRID_TICKET_MASTER_KEY"`

	// Signing secrets for the two token classes. Must differ.
	AccessSecret  string `env:"AUTHGRID_ACCESS_SECRET"`
	RefreshSecret string `env:"AUTHGRID_REFRESH_SECRET"`

	TGTTTL           time.Duration `env:"AUTHGRID_TGT_TTL" envDefault:"1h"`
	ServiceTicketTTL time.Duration `env:"AUTHGRID_SERVICE_TICKET_TTL" envDefault:"10m"`
	AccessTTL        time.Duration `env:"AUTHGRID_ACCESS_TTL" envDefault:"20m"`
	RefreshTTL       time.Duration `env:"AUTHGRID_REFRESH_TTL" envDefault:"336h"`
	APIKeyTTL        time.Duration `env:"AUTHGRID_APIKEY_TTL" envDefault:"720h"`

	RateBurst  int     `env:"AUTHGRID_RATE_BURST" envDefault:"20"`
	RatePerSec float64 `env:"AUTHGRID_RATE_PER_SEC" envDefault:"10"`

	// Environment controls log verbosity conventions ("development",
	// "production").
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from environment variables. It first attempts to
// load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TicketMasterKey == "" {
		return fmt.Errorf("AUTHGRID_TICKET_MASTER_KEY is required")
	}
	if key, err := hex.DecodeString(c.TicketMasterKey); err != nil || len(key) != 32 {
		return fmt.Errorf("AUTHGRID_TICKET_MASTER_KEY must be 32 bytes of hex")
	}
	if c.AccessSecret == "" {
		return fmt.Errorf("AUTHGRID_ACCESS_SECRET is required")
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("AUTHGRID_REFRESH_SECRET is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("AUTHGRID_ACCESS_SECRET and AUTHGRID_REFRESH_SECRET must differ")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// MasterKey returns the decoded ticket master key. Load has already
// validated the encoding.
func (c *Config) MasterKey() []byte {
	key, _ := hex.DecodeString(c.TicketMasterKey)
	return key
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
