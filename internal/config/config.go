// Load envs from .env
// Load YAML config
// Override with env vars, provide defaults, validate

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"

	EscapeStrip = "strip"
	EscapeNone  = "none"

	ListenPolling = "polling"
	ListenWebhook = "webhook"

	DefaultPath = "configs/config.yaml"
)

type LinkedInQuery struct {
	Keywords     string        `yaml:"keywords"`
	Experience   []int         `yaml:"experience"`
	Workplace    []int         `yaml:"workplace"`
	PostedWithin time.Duration `yaml:"posted_within"`
	GeoID        string        `yaml:"geo_id"`
}

type Config struct {
	TelegramToken  string `yaml:"telegram_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`

	//Search target
	SearchURL   string `yaml:"search_url" env:"SEARCH_URL"`
	Selector    string `yaml:"selector" env:"LISTING_SELECTOR"`
	LabelAttr   string `yaml:"label_attr"`
	URLAttr     string `yaml:"url_attr"`
	MaxListings int    `yaml:"max_listings"`
	StripQuery  bool   `yaml:"strip_query"`

	//LinkedIn builds search_url when it is empty
	LinkedIn LinkedInQuery `yaml:"linkedin"`

	//Browser
	DebugEndpoint     string        `yaml:"debug_endpoint" env:"BROWSER_DEBUG_URL"`
	Driver            string        `yaml:"driver" env:"BROWSER_DRIVER"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	RenderWait        time.Duration `yaml:"render_wait"`

	//Digest
	EscapeMode string `yaml:"escape_mode"`

	//Inbound listener + http
	ListenMode string `yaml:"listen_mode" env:"LISTEN_MODE"`
	WebhookURL string `yaml:"webhook_url" env:"WEBHOOK_URL"`
	HTTPAddr   string `yaml:"http_addr" env:"HTTP_ADDR"`

	//Paths
	CookiesPath   string `yaml:"cookies_path"`
	ScreenshotDir string `yaml:"screenshot_dir"`

	//Logging
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format"`
}

// Load reads .env, then the YAML file at path, then env overrides.
// A missing .env or YAML file is not an error; a missing required value is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		//env-only setup
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.TelegramToken,
		"SEARCH_URL":         &c.SearchURL,
		"LISTING_SELECTOR":   &c.Selector,
		"BROWSER_DEBUG_URL":  &c.DebugEndpoint,
		"BROWSER_DRIVER":     &c.Driver,
		"LISTEN_MODE":        &c.ListenMode,
		"WEBHOOK_URL":        &c.WebhookURL,
		"HTTP_ADDR":          &c.HTTPAddr,
		"LOG_LEVEL":          &c.LogLevel,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	return nil
}

func (c *Config) applyDefaults() {
	//job card anchors on the LinkedIn results page
	if c.Selector == "" && c.SearchURL == "" && c.LinkedIn.Keywords != "" {
		c.Selector = ".job-card-container__link"
	}
	if c.LabelAttr == "" {
		c.LabelAttr = "aria-label"
	}
	if c.URLAttr == "" {
		c.URLAttr = "href"
	}
	if c.DebugEndpoint == "" {
		c.DebugEndpoint = "http://localhost:9222"
	}
	if c.Driver == "" {
		c.Driver = DriverPlaywright
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.RenderWait <= 0 {
		c.RenderWait = 10 * time.Second
	}
	if c.EscapeMode == "" {
		c.EscapeMode = EscapeStrip
	}
	if c.ListenMode == "" {
		c.ListenMode = ListenPolling
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// Validate reports the first missing or unknown setting.
func (c *Config) Validate() error {
	//required fields
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required")
	}
	if c.SearchURL == "" && c.LinkedIn.Keywords == "" {
		return errors.New("search_url or linkedin.keywords is required")
	}
	if c.Selector == "" {
		return errors.New("selector is required")
	}
	if c.MaxListings < 0 {
		return fmt.Errorf("max_listings must be >= 0, got %d", c.MaxListings)
	}

	//enums
	switch c.Driver {
	case DriverPlaywright, DriverChromedp:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	switch c.EscapeMode {
	case EscapeStrip, EscapeNone:
	default:
		return fmt.Errorf("unknown escape_mode %q", c.EscapeMode)
	}
	switch c.ListenMode {
	case ListenPolling:
	case ListenWebhook:
		if c.WebhookURL == "" {
			return errors.New("webhook_url is required when listen_mode is webhook")
		}
	default:
		return fmt.Errorf("unknown listen_mode %q", c.ListenMode)
	}
	return nil
}
