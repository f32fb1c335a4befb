package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	DataDir  string `yaml:"data_dir" env:"CERTHUB_DATA_DIR" env-default:""`
	Instance string `yaml:"instance" env:"CERTHUB_INSTANCE" env-default:""`

	Server   ServerConfig   `yaml:"server"`
	Remote   RemoteConfig   `yaml:"remote"`
	Solver   SolverConfig   `yaml:"solver"`
	Acquire  AcquireConfig  `yaml:"acquire"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings for the `serve` command.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"CERTHUB_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"CERTHUB_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"CERTHUB_WRITE_TIMEOUT"    env-default:"10m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"CERTHUB_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// RemoteConfig selects and configures the shared remote store backend.
type RemoteConfig struct {
	// Backend is "redis", "postgres" or "" (offline: local document only).
	Backend     string `yaml:"backend"      env:"CERTHUB_REMOTE_BACKEND" env-default:""`
	RedisURL    string `yaml:"redis_url"    env:"CERTHUB_REDIS_URL"`
	PostgresDSN string `yaml:"postgres_dsn" env:"CERTHUB_POSTGRES_DSN"`

	PushConcurrency int `yaml:"push_concurrency" env:"CERTHUB_PUSH_CONCURRENCY" env-default:"4"`
}

// SolverConfig configures the external challenge solving service.
type SolverConfig struct {
	APIKey       string        `yaml:"api_key"       env:"CERTHUB_SOLVER_API_KEY"`
	BaseURL      string        `yaml:"base_url"      env:"CERTHUB_SOLVER_URL" env-default:"https://api.capmonster.cloud"`
	PollInterval time.Duration `yaml:"poll_interval" env:"CERTHUB_SOLVER_POLL_INTERVAL" env-default:"3s"`
	PollAttempts int           `yaml:"poll_attempts" env:"CERTHUB_SOLVER_POLL_ATTEMPTS" env-default:"40"`
}

// AcquireConfig bounds the acquisition state machine.
type AcquireConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"   env:"CERTHUB_MAX_ATTEMPTS"   env-default:"5"`
	VerifyWindow  time.Duration `yaml:"verify_window"  env:"CERTHUB_VERIFY_WINDOW"  env-default:"40s"`
	StageTimeout  time.Duration `yaml:"stage_timeout"  env:"CERTHUB_STAGE_TIMEOUT"  env-default:"30s"`
	HumanPacing   bool          `yaml:"human_pacing"   env:"CERTHUB_HUMAN_PACING"   env-default:"true"`
	LookupBaseURL string        `yaml:"lookup_base_url" env:"CERTHUB_LOOKUP_URL" env-default:"https://brasilapi.com.br"`
}

// AuthConfig holds API authentication settings. The admin credentials seed a
// first account when the user store is empty; they are ignored afterwards.
type AuthConfig struct {
	JWTSigningKey string        `yaml:"jwt_signing_key" env:"CERTHUB_JWT_SIGNING_KEY" env-default:"dev-secret-key-change-in-production"`
	TokenTTL      time.Duration `yaml:"token_ttl"       env:"CERTHUB_TOKEN_TTL"       env-default:"12h"`
	AdminUsername string        `yaml:"admin_username"  env:"CERTHUB_ADMIN_USERNAME"  env-default:"admin"`
	AdminPassword string        `yaml:"admin_password"  env:"CERTHUB_ADMIN_PASSWORD"  env-default:""`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"CERTHUB_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"CERTHUB_LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from an optional YAML file and environment
// variables. Priority: ENV > YAML > defaults. The file path comes from
// CONFIG_PATH (fallback "./certhub.yaml"); a missing default file is fine.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./certhub.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		c.DataDir = home + "/.certhub"
	}
	if c.Instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		c.Instance = host
	}
	switch c.Remote.Backend {
	case "", "redis", "postgres":
	default:
		return fmt.Errorf("unknown remote backend %q", c.Remote.Backend)
	}
	if c.Remote.Backend == "redis" && c.Remote.RedisURL == "" {
		return fmt.Errorf("redis backend selected but CERTHUB_REDIS_URL is empty")
	}
	if c.Remote.Backend == "postgres" && c.Remote.PostgresDSN == "" {
		return fmt.Errorf("postgres backend selected but CERTHUB_POSTGRES_DSN is empty")
	}
	if c.Acquire.MaxAttempts <= 0 {
		c.Acquire.MaxAttempts = 5
	}
	return nil
}
