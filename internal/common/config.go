package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Search      SearchConfig    `toml:"search"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Email       EmailConfig     `toml:"email"`
	Jobs        JobsConfig      `toml:"jobs"`
	Sectors     SectorsConfig   `toml:"sectors"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// SearchConfig controls the search adapter: the headless browser path
// and the HTTP fallback.
type SearchConfig struct {
	UseBrowser      bool          `toml:"use_browser"`
	PagePoolSize    int           `toml:"page_pool_size" validate:"gte=1,lte=10"`
	UserAgent       string        `toml:"user_agent"`
	NavigateTimeout time.Duration `toml:"navigate_timeout"`
	SelectorTimeout time.Duration `toml:"selector_timeout"`
	InitialDelay    time.Duration `toml:"initial_delay"`
	MaxDelay        time.Duration `toml:"max_delay"`
	MaxRetries      int           `toml:"max_retries" validate:"gte=0,lte=5"`
	Headless        bool          `toml:"headless"`
	NoSandbox       bool          `toml:"no_sandbox"`
}

// ScraperConfig controls the site fetcher.
type ScraperConfig struct {
	HomepageTimeout time.Duration `toml:"homepage_timeout"`
	ContactTimeout  time.Duration `toml:"contact_timeout"`
	PolitenessDelay time.Duration `toml:"politeness_delay"`
	MaxRedirects    int           `toml:"max_redirects" validate:"gte=0,lte=10"`
	UserAgent       string        `toml:"user_agent"`
}

// EmailConfig controls the email validator.
type EmailConfig struct {
	MXTimeout   time.Duration `toml:"mx_timeout"`
	SMTPTimeout time.Duration `toml:"smtp_timeout"`
	HeloDomain  string        `toml:"helo_domain"`
	MailFrom    string        `toml:"mail_from"`
}

// JobsConfig holds job-level defaults that a start request can override.
type JobsConfig struct {
	DefaultTargetLeads int `toml:"default_target_leads" validate:"gte=1"`
	DefaultMinScore    int `toml:"default_min_score" validate:"gte=0,lte=100"`
	DefaultConcurrency int `toml:"default_concurrency" validate:"gte=1,lte=50"`
	StaleSessionHours  int `toml:"stale_session_hours" validate:"gte=1"`
}

// SectorsConfig points at the hot-reloadable ERP sector taxonomy file.
type SectorsConfig struct {
	File string `toml:"file"`
}

// WebSocketConfig controls event broadcasting to clients.
type WebSocketConfig struct {
	ProgressThrottle time.Duration `toml:"progress_throttle"` // min interval between progress/update pushes
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/captare",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Search: SearchConfig{
			UseBrowser:      true,
			PagePoolSize:    5,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			NavigateTimeout: 25 * time.Second,
			SelectorTimeout: 4 * time.Second,
			InitialDelay:    1500 * time.Millisecond,
			MaxDelay:        60 * time.Second,
			MaxRetries:      2,
			Headless:        true,
			NoSandbox:       true,
		},
		Scraper: ScraperConfig{
			HomepageTimeout: 12 * time.Second,
			ContactTimeout:  8 * time.Second,
			PolitenessDelay: 500 * time.Millisecond,
			MaxRedirects:    5,
			UserAgent:       "Mozilla/5.0 (compatible; CaptareBot/1.0)",
		},
		Email: EmailConfig{
			MXTimeout:   5 * time.Second,
			SMTPTimeout: 5 * time.Second,
			HeloDomain:  "captare.local",
			MailFrom:    "verify@captare.local",
		},
		Jobs: JobsConfig{
			DefaultTargetLeads: 1000,
			DefaultMinScore:    50,
			DefaultConcurrency: 5,
			StaleSessionHours:  24,
		},
		Sectors: SectorsConfig{
			File: "./config/sectors.json",
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: 250 * time.Millisecond,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CAPTARE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("CAPTARE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CAPTARE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("CAPTARE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("CAPTARE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if file := os.Getenv("CAPTARE_SECTORS_FILE"); file != "" {
		config.Sectors.File = file
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest
// priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration against the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
