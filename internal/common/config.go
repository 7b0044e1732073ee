package common

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/joseph-ayodele/onoma/constants"
)

// Supported suggestion providers.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderMock   = "mock"
)

// DefaultConfigFile is the per-user config file name under $HOME.
const DefaultConfigFile = ".onomarc"

// Config holds all application configuration
type Config struct {
	Provider string        `toml:"default_provider"`
	LLM      LLMConfig     `toml:"llm"`
	Azure    AzureConfig   `toml:"azure"`
	Naming   NamingConfig  `toml:"naming"`
	Prompts  PromptsConfig `toml:"prompts"`
	Extract  ExtractConfig `toml:"extract"`
	History  HistoryConfig `toml:"history"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model            string   `toml:"model"`
	APIKey           string   `toml:"api_key"`
	BaseURL          string   `toml:"base_url"`
	Temperature      float32  `toml:"temperature"`
	Timeout          Duration `toml:"timeout"`
	MaxContentChars  int      `toml:"max_content_chars"`
	ImageConcurrency int      `toml:"image_concurrency"`
	MaxImageMB       int      `toml:"max_image_mb"`
	Lenient          bool     `toml:"lenient"`
}

// AzureConfig is only read when Provider is "azure".
type AzureConfig struct {
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	Deployment string `toml:"deployment"`
	APIVersion string `toml:"api_version"`
}

type NamingConfig struct {
	Convention string `toml:"convention"`
	MinWords   int    `toml:"min_words"`
	MaxWords   int    `toml:"max_words"`
}

// PromptsConfig overrides the built-in prompt templates. Templates may use the
// {naming_convention}, {content}, {min_words} and {max_words} placeholders.
type PromptsConfig struct {
	System string `toml:"system,omitempty"`
	User   string `toml:"user,omitempty"`
	Image  string `toml:"image,omitempty"`
}

// ExtractConfig names the external tools and rasterisation knobs.
type ExtractConfig struct {
	Pdftotext     string `toml:"pdftotext"`
	Pdftoppm      string `toml:"pdftoppm"`
	Soffice       string `toml:"soffice"`
	Convert       string `toml:"convert"`
	HeicConverter string `toml:"heic_converter"`
	PDFDPI        int    `toml:"pdf_dpi"`
	SlideDensity  int    `toml:"slide_density"`
	SlideQuality  int    `toml:"slide_quality"`
	SlideMaxSide  int    `toml:"slide_max_side"`
	SVGMaxSide    int    `toml:"svg_max_side"`
	TempDir       string `toml:"temp_dir,omitempty"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

// Duration lets durations be written as "45s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		LLM: LLMConfig{
			Model:            "gpt-4o-mini",
			BaseURL:          "https://api.openai.com/v1",
			Temperature:      0.0,
			Timeout:          Duration{60 * time.Second},
			MaxContentChars:  195_000,
			ImageConcurrency: 1,
			MaxImageMB:       constants.MaxVisionMBDefault,
			Lenient:          false,
		},
		Azure: AzureConfig{
			APIVersion: "2024-10-21",
		},
		Naming: NamingConfig{
			Convention: string(constants.DefaultStyle),
			MinWords:   3,
			MaxWords:   10,
		},
		Extract: ExtractConfig{
			Pdftotext:     "pdftotext",
			Pdftoppm:      "pdftoppm",
			Soffice:       "soffice",
			Convert:       "convert",
			HeicConverter: "magick",
			PDFDPI:        72,
			SlideDensity:  150,
			SlideQuality:  80,
			SlideMaxSide:  1024,
			SVGMaxSide:    1024,
		},
		History: HistoryConfig{
			Enabled: true,
			DSN:     DefaultHistoryDSN(),
		},
	}
}

// DefaultConfigPath returns ~/.onomarc, or the bare file name when $HOME is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFile
	}
	return filepath.Join(home, DefaultConfigFile)
}

// DefaultHistoryDSN points the journal at an sqlite file under ~/.onoma.
func DefaultHistoryDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".onoma", "history.db")
	}
	return filepath.Join(home, ".onoma", "history.db")
}

// LoadConfig layers defaults, the TOML file at path and environment overrides.
// An empty path means the default file; a missing or unreadable default file
// is not an error. An explicit path must exist and parse.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			logger.Debug("config.file_missing", "path", path)
		case explicit:
			return nil, NewAppError(CodeConfig, "read config "+path, errors.Join(ErrInvalidInput, err))
		default:
			logger.Warn("config.parse_error", "path", path, "error", err, "hint", "using defaults")
			cfg = DefaultConfig()
		}
	} else {
		logger.Debug("config.loaded", "path", path)
	}

	cfg.applyEnv()
	cfg.Normalize(logger)
	return cfg, nil
}

// SaveConfig writes cfg as TOML, creating or truncating path.
func SaveConfig(path string, cfg *Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewAppError(CodeIO, "create config dir", errors.Join(ErrIO, err))
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return NewAppError(CodeIO, "open config "+path, errors.Join(ErrIO, err))
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return NewAppError(CodeIO, "encode config", errors.Join(ErrIO, err))
	}
	if err := f.Close(); err != nil {
		return NewAppError(CodeIO, "close config", errors.Join(ErrIO, err))
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Provider = getEnv("ONOMA_PROVIDER", c.Provider)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("ONOMA_MODEL", getEnv("OPENAI_MODEL", c.LLM.Model))
	c.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout.Duration = getEnvAsDuration("OPENAI_TIMEOUT", c.LLM.Timeout.Duration)
	c.LLM.ImageConcurrency = getEnvAsInt("ONOMA_IMAGE_CONCURRENCY", c.LLM.ImageConcurrency)

	c.Azure.APIKey = getEnv("AZURE_OPENAI_API_KEY", c.Azure.APIKey)
	c.Azure.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", c.Azure.Endpoint)
	c.Azure.Deployment = getEnv("AZURE_OPENAI_DEPLOYMENT", c.Azure.Deployment)
	c.Azure.APIVersion = getEnv("AZURE_OPENAI_API_VERSION", c.Azure.APIVersion)

	c.Naming.Convention = getEnv("ONOMA_NAMING_CONVENTION", c.Naming.Convention)
	c.Extract.TempDir = getEnv("ONOMA_TEMP_DIR", c.Extract.TempDir)
	c.History.DSN = getEnv("ONOMA_HISTORY_DSN", c.History.DSN)
}

// Normalize canonicalises the convention (unknown names fall back to
// snake_case with a warning) and orders the word bounds.
func (c *Config) Normalize(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	conv, ok := constants.ParseConvention(c.Naming.Convention)
	if !ok {
		logger.Warn("config.unknown_convention", "convention", c.Naming.Convention, "fallback", string(conv))
	}
	c.Naming.Convention = string(conv)
	if c.Naming.MinWords < 1 {
		c.Naming.MinWords = 1
	}
	if c.Naming.MaxWords < c.Naming.MinWords {
		c.Naming.MaxWords = c.Naming.MinWords
	}
	if c.LLM.ImageConcurrency < 1 {
		c.LLM.ImageConcurrency = 1
	}
}

// Validate checks the loaded configuration for the selected provider.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("default_provider", c.Provider, OneOf(ProviderOpenAI, ProviderAzure, ProviderMock))
	v.Field("naming.convention", c.Naming.Convention, OneOf(constants.ConventionStrings()...))
	v.Field("naming.min_words", c.Naming.MinWords, Positive)
	v.Field("naming.max_words", c.Naming.MaxWords, Positive)
	v.Field("llm.max_content_chars", c.LLM.MaxContentChars, Positive)
	v.Field("llm.image_concurrency", c.LLM.ImageConcurrency, Positive)
	v.Field("llm.temperature", c.LLM.Temperature, Range(0, 2))

	switch c.Provider {
	case ProviderOpenAI:
		v.Field("llm.api_key (OPENAI_API_KEY)", c.LLM.APIKey, Required)
		v.Field("llm.model", c.LLM.Model, Required)
	case ProviderAzure:
		v.Field("azure.api_key (AZURE_OPENAI_API_KEY)", c.Azure.APIKey, Required)
		v.Field("azure.endpoint", c.Azure.Endpoint, Required)
		v.Field("azure.deployment", c.Azure.Deployment, Required)
	}
	if c.History.Enabled {
		v.Field("history.dsn", c.History.DSN, Required)
	}
	return v.AsAppError(CodeConfig)
}

// String renders the config as TOML with secrets masked, for --verbose output.
func (c *Config) String() string {
	masked := *c
	masked.LLM.APIKey = mask(c.LLM.APIKey)
	masked.Azure.APIKey = mask(c.Azure.APIKey)
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(masked); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}

func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
