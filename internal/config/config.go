package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/localrivet/configurator"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

const EnvPrefix = "CONTEXTOVERFLOW"

const (
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	ModeRemote = "remote"
	ModeLocal  = "local"
)

type Config struct {
	Addr        string     `json:"addr" yaml:"addr" env:"ADDR" validate:"required"`
	StoreDriver string     `json:"store_driver" yaml:"store_driver" env:"STORE_DRIVER" validate:"required"`
	SQLitePath  string     `json:"sqlite_path" yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN string     `json:"postgres_dsn" yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	HashSecret  string     `json:"hash_secret" yaml:"hash_secret" env:"HASH_SECRET"`
	VoteRepeat  string     `json:"vote_repeat" yaml:"vote_repeat" env:"VOTE_REPEAT"`
	MaxPageSize int        `json:"max_page_size" yaml:"max_page_size" env:"MAX_PAGE_SIZE"`
	RateLimits  RateLimits `json:"rate_limits" yaml:"rate_limits"`
	Logging     Logging    `json:"logging" yaml:"logging"`
	Bridge      Bridge     `json:"bridge" yaml:"bridge"`
	Version     string     `json:"-" yaml:"-"`
}

type RateLimits struct {
	QuestionPerMinute int `json:"question_per_minute" yaml:"question_per_minute" env:"RL_QUESTION_PER_MIN"`
	AnswerPerMinute   int `json:"answer_per_minute" yaml:"answer_per_minute" env:"RL_ANSWER_PER_MIN"`
	VotePerMinute     int `json:"vote_per_minute" yaml:"vote_per_minute" env:"RL_VOTE_PER_MIN"`
}

type Logging struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
}

// Bridge configures the MCP bridge.
type Bridge struct {
	BaseURL string `json:"base_url" yaml:"base_url" env:"BASE_URL"`
	User    string `json:"user" yaml:"user" env:"MCP_USER"`
	Mode    string `json:"mode" yaml:"mode" env:"MCP_MODE"`
}

func Load() Config {
	addr := envString("ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8000"
		}
	}
	cfg := Config{
		Addr:        addr,
		StoreDriver: envString("STORE_DRIVER", DriverSQLite),
		SQLitePath:  envString("SQLITE_PATH", "contextoverflow.db"),
		PostgresDSN: envString("POSTGRES_DSN", ""),
		HashSecret:  envString("HASH_SECRET", "dev-hash-secret"),
		VoteRepeat:  envString("VOTE_REPEAT", string(vote.PolicyIgnore)),
		MaxPageSize: envInt("MAX_PAGE_SIZE", 100),
		RateLimits: RateLimits{
			QuestionPerMinute: envInt("RL_QUESTION_PER_MIN", 10),
			AnswerPerMinute:   envInt("RL_ANSWER_PER_MIN", 30),
			VotePerMinute:     envInt("RL_VOTE_PER_MIN", 120),
		},
		Logging: Logging{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Bridge: Bridge{
			BaseURL: envString("BASE_URL", "http://localhost:8000"),
			User:    envString("MCP_USER", "claude-code-user"),
			Mode:    envString("MCP_MODE", ModeRemote),
		},
		Version: envString("VERSION", "dev"),
	}

	return cfg
}

// LoadFile layers a JSON or YAML file and then the environment over the
// defaults from Load. An empty path is the same as Load.
func LoadFile(ctx context.Context, path string, logger *slog.Logger) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, cfg.Validate()
	}
	if _, err := os.Stat(path); err != nil {
		return Config{}, errortypes.ConfigError(err, "config file not readable").WithField("path", path)
	}
	if logger == nil {
		logger = slog.Default()
	}

	loader := configurator.New(logger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(path)).
		WithProvider(configurator.NewEnvProvider(EnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(ctx, &cfg); err != nil {
		return Config{}, errortypes.ConfigError(err, "failed to load configuration").WithField("path", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errortypes.ConfigError(nil, "postgres_dsn is required for the postgres store")
		}
	default:
		return errortypes.ConfigError(nil, fmt.Sprintf("unknown store driver %q", c.StoreDriver))
	}
	if _, err := vote.ParsePolicy(c.VoteRepeat); err != nil {
		return errortypes.ConfigError(err, "invalid vote_repeat")
	}
	switch c.Bridge.Mode {
	case ModeRemote, ModeLocal:
	default:
		return errortypes.ConfigError(nil, fmt.Sprintf("unknown bridge mode %q", c.Bridge.Mode))
	}
	if c.MaxPageSize <= 0 {
		return errortypes.ConfigError(nil, "max_page_size must be positive")
	}
	return nil
}

// VotePolicy returns the parsed repeat-vote policy. Call Validate first.
func (c Config) VotePolicy() vote.Policy {
	p, _ := vote.ParsePolicy(c.VoteRepeat)
	return p
}

func envString(key, def string) string {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
func ShutdownTimeout() time.Duration {
	return envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
}
