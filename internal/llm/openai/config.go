package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config for the OpenAI client. Setting AzureEndpoint switches the client to
// Azure OpenAI deployment URLs and api-key authentication.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2; zero leaves the provider default
	Timeout     time.Duration // http client timeout
	Lenient     bool          // sanitize and re-validate answers that fail the schema
	MaxImageMB  int           // images larger than this are not attached

	AzureEndpoint   string // e.g. https://my-resource.openai.azure.com
	AzureDeployment string
	AzureAPIVersion string
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		if cfg.AzureEndpoint != "" {
			cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.AzureAPIVersion == "" {
		cfg.AzureAPIVersion = "2024-10-21"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) Name() string {
	if c.azure() {
		return "azure:" + c.cfg.AzureDeployment
	}
	return "openai:" + c.cfg.Model
}

func (c *Client) azure() bool { return c.cfg.AzureEndpoint != "" }

func (c *Client) endpoint() string {
	if c.azure() {
		return strings.TrimRight(c.cfg.AzureEndpoint, "/") +
			"/openai/deployments/" + c.cfg.AzureDeployment +
			"/chat/completions?api-version=" + c.cfg.AzureAPIVersion
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
}

func (c *Client) headers() map[string]string {
	if c.azure() {
		return map[string]string{"api-key": c.cfg.APIKey}
	}
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
