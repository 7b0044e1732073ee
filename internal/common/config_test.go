package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/onoma/constants"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ONOMA_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "ONOMA_MODEL", "OPENAI_MODEL",
		"OPENAI_TEMPERATURE", "OPENAI_TIMEOUT", "ONOMA_IMAGE_CONCURRENCY",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_VERSION",
		"ONOMA_NAMING_CONVENTION", "ONOMA_TEMP_DIR", "ONOMA_HISTORY_DSN",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "onoma.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfig_DefaultsWhenDefaultFileMissing(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, string(constants.SnakeCase), cfg.Naming.Convention)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout.Duration)
	assert.True(t, strings.HasSuffix(cfg.History.DSN, filepath.Join(".onoma", "history.db")))
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
default_provider = "azure"

[llm]
model = "gpt-4.1"
timeout = "15s"

[azure]
endpoint = "https://file.example.com"
deployment = "from-file"

[naming]
convention = "kebab"
min_words = 2
max_words = 1
`)
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "from-env")
	t.Setenv("AZURE_OPENAI_API_KEY", "secret-key-1234")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, cfg.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout.Duration)
	assert.Equal(t, "from-env", cfg.Azure.Deployment)
	assert.Equal(t, string(constants.KebabCase), cfg.Naming.Convention)
	assert.Equal(t, 2, cfg.Naming.MaxWords, "max is raised to min")
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_ExplicitPathErrors(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = LoadConfig(writeConfig(t, "default_provider = ["), nil)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeConfig, appErr.Code)
}

func TestLoadConfig_MalformedDefaultFileFallsBack(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(DefaultConfigPath(), []byte("not = [valid"), 0o644))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LLM.Model, cfg.LLM.Model)
}

func TestNormalize_UnknownConvention(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Naming.Convention = "SCREAMING_CASE"
	cfg.Naming.MinWords = 0
	cfg.LLM.ImageConcurrency = 0
	cfg.Normalize(nil)
	assert.Equal(t, string(constants.SnakeCase), cfg.Naming.Convention)
	assert.Equal(t, 1, cfg.Naming.MinWords)
	assert.Equal(t, 1, cfg.LLM.ImageConcurrency)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"openai without key", func(c *Config) {}, "llm.api_key"},
		{"openai with key", func(c *Config) { c.LLM.APIKey = "k" }, ""},
		{"mock needs nothing", func(c *Config) { c.Provider = ProviderMock }, ""},
		{"azure missing endpoint", func(c *Config) {
			c.Provider = ProviderAzure
			c.Azure.APIKey = "k"
			c.Azure.Deployment = "d"
		}, "azure.endpoint"},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }, "default_provider"},
		{"temperature out of range", func(c *Config) {
			c.Provider = ProviderMock
			c.LLM.Temperature = 3
		}, "llm.temperature"},
		{"history without dsn", func(c *Config) {
			c.Provider = ProviderMock
			c.History.DSN = ""
		}, "history.dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.Provider = ProviderMock
	cfg.Naming.Convention = string(constants.PascalCase)
	cfg.Prompts.System = "Name things {naming_convention}."

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Provider, got.Provider)
	assert.Equal(t, cfg.Naming, got.Naming)
	assert.Equal(t, cfg.Prompts.System, got.Prompts.System)
	assert.Equal(t, cfg.LLM.Timeout, got.LLM.Timeout)
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-abcdefgh1234"
	cfg.Azure.APIKey = "abc"
	out := cfg.String()
	assert.NotContains(t, out, "sk-abcdefgh1234")
	assert.Contains(t, out, "****1234")
	assert.Contains(t, out, `api_key = "****"`)
}

func TestContextIDs(t *testing.T) {
	ctx := WithFileID(WithRunID(t.Context(), "run-1"), "file-9")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "file-9", FileIDFromContext(ctx))
	assert.Empty(t, RunIDFromContext(t.Context()))
}
