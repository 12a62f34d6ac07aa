// Package config loads crashcalc configuration from an optional YAML file,
// a .env file and the process environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config is the top-level crashcalc configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Slack     SlackConfig     `yaml:"slack"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string   `yaml:"host" env:"HOST"`
	Port        int      `yaml:"port" env:"PORT"`
	Debug       bool     `yaml:"debug" env:"DEBUG"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig selects and addresses the report database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	Path     string `yaml:"path" env:"DB_PATH"`
}

// WebhookConfig addresses the enrichment workflow. An empty URL disables dispatch.
type WebhookConfig struct {
	URL     string        `yaml:"url" env:"N8N_WEBHOOK_URL"`
	Timeout time.Duration `yaml:"timeout" env:"WEBHOOK_TIMEOUT"`
}

// SlackConfig enables the optional operator alert on new reports.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" env:"SLACK_WEBHOOK_URL"`
}

// ReconcileConfig schedules periodic total reconciliation. Empty disables it.
type ReconcileConfig struct {
	Schedule string `yaml:"schedule" env:"RECONCILE_SCHEDULE"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load builds a validated Config. If path is non-empty the YAML file at path
// is read first; a .env file in the working directory and then the process
// environment override it.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = b
	}
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies environment overrides and defaults,
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in default values for anything left unset.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "crash_reports"
	}
	if c.Database.Path == "" {
		c.Database.Path = "instance/crash_reports.db"
	}
	if c.Webhook.Timeout == 0 {
		c.Webhook.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// validate checks that all values are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be %q or %q", c.Database.Driver, DriverMySQL, DriverSQLite))
	}
	if c.Database.Driver == DriverMySQL && (c.Database.Port < 1 || c.Database.Port > 65535) {
		errs = append(errs, fmt.Sprintf("database.port %d out of range", c.Database.Port))
	}
	if c.Webhook.URL != "" {
		if err := checkURL(c.Webhook.URL); err != nil {
			errs = append(errs, "webhook.url "+err.Error())
		}
	}
	if c.Webhook.Timeout < 0 {
		errs = append(errs, "webhook.timeout must not be negative")
	}
	if c.Slack.WebhookURL != "" {
		if err := checkURL(c.Slack.WebhookURL); err != nil {
			errs = append(errs, "slack.webhook_url "+err.Error())
		}
	}
	if c.Reconcile.Schedule != "" {
		if _, err := cron.ParseStandard(c.Reconcile.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("reconcile.schedule %q: %v", c.Reconcile.Schedule, err))
		}
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be \"json\" or \"text\"", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must be an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
