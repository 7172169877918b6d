package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingSigningSecret is returned when no compliance signing secret is configured.
	ErrMissingSigningSecret = errors.New("ledger.signing_secret (or SAFEPASS_SIGNING_SECRET) is required")
	// ErrMissingJWTSecret is returned when no token verification secret is configured.
	ErrMissingJWTSecret = errors.New("auth.jwt_secret (or SAFEPASS_JWT_SECRET) is required")
	// ErrNoRegions is returned when the region list is empty.
	ErrNoRegions = errors.New("quiz.regions must list at least one region")
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL        string   `yaml:"ttl"`
		SessionTTL string   `yaml:"session_ttl"`
		SampleSize int      `yaml:"sample_size"`
		Regions    []string `yaml:"regions"`
		BankPath   string   `yaml:"bank_path"`
	} `yaml:"quiz"`
	Ledger struct {
		SigningSecret   string `yaml:"signing_secret"`
		WindowDays      int    `yaml:"window_days"`
		SubmissionTTL   string `yaml:"submission_ttl"`
		OverdueSchedule string `yaml:"overdue_schedule"`
	} `yaml:"ledger"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		Audience  string `yaml:"audience"`
	} `yaml:"auth"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv lets deployment secrets and endpoints come from the environment instead of the file.
func (c *Config) ApplyEnv() {
	override(&c.Env, "APP_ENV")
	override(&c.Postgres.URL, "DATABASE_URL")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Ledger.SigningSecret, "SAFEPASS_SIGNING_SECRET")
	override(&c.Auth.JWTSecret, "SAFEPASS_JWT_SECRET")
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.Ledger.SigningSecret == "" {
		return ErrMissingSigningSecret
	}
	if len(c.Quiz.Regions) == 0 {
		return ErrNoRegions
	}
	return nil
}

// ValidateServer additionally checks what serving the API needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// SafetyWindow returns the safety index window, 90 days unless configured.
func (c Config) SafetyWindow() time.Duration {
	if c.Ledger.WindowDays <= 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(c.Ledger.WindowDays) * 24 * time.Hour
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
