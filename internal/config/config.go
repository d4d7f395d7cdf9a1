package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type ServerConfig struct {
	Port int `yaml:"port" env:"HEALTHTRACKER_PORT"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver" env:"HEALTHTRACKER_DB_DRIVER"`
	DSN    string `yaml:"url" env:"HEALTHTRACKER_DB_URL"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" env:"HEALTHTRACKER_SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"HEALTHTRACKER_SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"HEALTHTRACKER_SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"HEALTHTRACKER_SMTP_PASSWORD"`
	FromEmail    string `yaml:"from_email" env:"HEALTHTRACKER_FROM_EMAIL"`
	// PublicURL prefixes the confirmation link put into emails.
	PublicURL string `yaml:"public_url" env:"HEALTHTRACKER_PUBLIC_URL"`
	DryRun    bool   `yaml:"dry_run" env:"HEALTHTRACKER_SMTP_DRY_RUN"`
}

type TokenConfig struct {
	AccessSecret       string        `yaml:"access_secret" env:"HEALTHTRACKER_ACCESS_SECRET"`
	AccessTTL          time.Duration `yaml:"access_ttl" env:"HEALTHTRACKER_ACCESS_TTL"`
	RefreshSecret      string        `yaml:"refresh_secret" env:"HEALTHTRACKER_REFRESH_SECRET"`
	RefreshTTL         time.Duration `yaml:"refresh_ttl" env:"HEALTHTRACKER_REFRESH_TTL"`
	ConfirmationSecret string        `yaml:"confirmation_secret" env:"HEALTHTRACKER_CONFIRMATION_SECRET"`
	ConfirmationTTL    time.Duration `yaml:"confirmation_ttl" env:"HEALTHTRACKER_CONFIRMATION_TTL"`
	ResetCodeTTL       time.Duration `yaml:"reset_code_ttl" env:"HEALTHTRACKER_RESET_CODE_TTL"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"HEALTHTRACKER_REDIS_ADDR"`
	Password string `yaml:"password" env:"HEALTHTRACKER_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"HEALTHTRACKER_REDIS_DB"`
	// MaxSends is how many confirmation/reset emails one address may trigger per Window.
	MaxSends int           `yaml:"max_sends" env:"HEALTHTRACKER_THROTTLE_MAX_SENDS"`
	Window   time.Duration `yaml:"window" env:"HEALTHTRACKER_THROTTLE_WINDOW"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token" env:"HEALTHTRACKER_TELEGRAM_TOKEN"`
	AdminChatID int64  `yaml:"admin_chat_id" env:"HEALTHTRACKER_TELEGRAM_ADMIN_CHAT"`
}

type ReportConfig struct {
	// FontPath is an optional UTF-8 TTF font for PDF reports.
	FontPath string `yaml:"font_path" env:"HEALTHTRACKER_REPORT_FONT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"HEALTHTRACKER_LOG_LEVEL"`
	Format string `yaml:"format" env:"HEALTHTRACKER_LOG_FORMAT"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Email    EmailConfig    `yaml:"email"`
	Tokens   TokenConfig    `yaml:"tokens"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
	Report   ReportConfig   `yaml:"report"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads the file named by HEALTHTRACKER_CONFIG (or config/config.yaml)
// and panics if the result is unusable.
func LoadConfig() *Config {
	path := os.Getenv("HEALTHTRACKER_CONFIG")
	if path == "" {
		path = defaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load decodes path (a missing file is not an error), applies environment
// overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.PublicURL == "" {
		c.Email.PublicURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Tokens.AccessTTL == 0 {
		c.Tokens.AccessTTL = 15 * time.Minute
	}
	if c.Tokens.RefreshTTL == 0 {
		c.Tokens.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Tokens.ConfirmationTTL == 0 {
		c.Tokens.ConfirmationTTL = 24 * time.Hour
	}
	if c.Tokens.ResetCodeTTL == 0 {
		c.Tokens.ResetCodeTTL = 15 * time.Minute
	}
	if c.Redis.MaxSends == 0 {
		c.Redis.MaxSends = 3
	}
	if c.Redis.Window == 0 {
		c.Redis.Window = 10 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects configurations that would let one token kind be replayed as another.
func (c *Config) Validate() error {
	t := c.Tokens
	if t.AccessSecret == "" || t.RefreshSecret == "" || t.ConfirmationSecret == "" {
		return errors.New("access, refresh and confirmation secrets are required")
	}
	if t.AccessSecret == t.RefreshSecret || t.AccessSecret == t.ConfirmationSecret || t.RefreshSecret == t.ConfirmationSecret {
		return errors.New("token secrets must be distinct")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}
