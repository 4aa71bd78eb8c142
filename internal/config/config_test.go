package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg := Load()
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, vote.PolicyIgnore, cfg.VotePolicy())
	assert.Equal(t, ModeRemote, cfg.Bridge.Mode)
	assert.Equal(t, "claude-code-user", cfg.Bridge.User)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CONTEXTOVERFLOW_STORE_DRIVER", "memory")
	t.Setenv("CONTEXTOVERFLOW_VOTE_REPEAT", "retract")
	t.Setenv("CONTEXTOVERFLOW_RL_VOTE_PER_MIN", "7")
	t.Setenv("CONTEXTOVERFLOW_MAX_PAGE_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, vote.PolicyRetract, cfg.VotePolicy())
	assert.Equal(t, 7, cfg.RateLimits.VotePerMinute)
	assert.Equal(t, 100, cfg.MaxPageSize)

	t.Setenv("CONTEXTOVERFLOW_ADDR", "127.0.0.1:7000")
	assert.Equal(t, "127.0.0.1:7000", Load().Addr)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }},
		{"postgres without dsn", func(c *Config) { c.StoreDriver = DriverPostgres; c.PostgresDSN = "" }},
		{"bad policy", func(c *Config) { c.VoteRepeat = "toggle" }},
		{"bad mode", func(c *Config) { c.Bridge.Mode = "hybrid" }},
		{"bad page size", func(c *Config) { c.MaxPageSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Load()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errortypes.ErrorTypeConfig, errortypes.TypeOf(err))
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeConfig, errortypes.TypeOf(err))

	cfg, err := LoadFile(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, Load(), cfg)
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileFormats(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
	}{
		{
			name: "json",
			file: "contextoverflow.json",
			body: `{
  "store_driver": "memory",
  "vote_repeat": "retract",
  "max_page_size": 50,
  "rate_limits": {"vote_per_minute": 3},
  "logging": {"format": "json"},
  "bridge": {"base_url": "http://qa.internal:8000", "mode": "local"}
}`,
		},
		{
			name: "yaml",
			file: "contextoverflow.yaml",
			body: `store_driver: memory
vote_repeat: retract
max_page_size: 50
rate_limits:
  vote_per_minute: 3
logging:
  format: json
bridge:
  base_url: http://qa.internal:8000
  mode: local
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFile(context.Background(), writeConfig(t, tc.file, tc.body), nil)
			require.NoError(t, err)
			assert.Equal(t, DriverMemory, cfg.StoreDriver)
			assert.Equal(t, vote.PolicyRetract, cfg.VotePolicy())
			assert.Equal(t, 50, cfg.MaxPageSize)
			assert.Equal(t, 3, cfg.RateLimits.VotePerMinute)
			assert.Equal(t, 10, cfg.RateLimits.QuestionPerMinute)
			assert.Equal(t, "json", cfg.Logging.Format)
			assert.Equal(t, "http://qa.internal:8000", cfg.Bridge.BaseURL)
			assert.Equal(t, ModeLocal, cfg.Bridge.Mode)
			assert.Equal(t, "claude-code-user", cfg.Bridge.User)
		})
	}
}

func TestLoadFileEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "contextoverflow.yml", "max_page_size: 50\nvote_repeat: retract\n")
	t.Setenv("CONTEXTOVERFLOW_MAX_PAGE_SIZE", "25")

	cfg, err := LoadFile(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.MaxPageSize)
	assert.Equal(t, vote.PolicyRetract, cfg.VotePolicy())
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "contextoverflow.yaml", "vote_repeat: toggle\n")
	_, err := LoadFile(context.Background(), path, nil)
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeConfig, errortypes.TypeOf(err))
}
