package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// EMINUS_WATCH_WINDOWS_REMINDER_MINUTES=15.
const EnvPrefix = "EMINUS_WATCH"

// State backends understood by the store package.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// PortalConfig holds connection settings for the academic portal.
type PortalConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Timezone is used to interpret portal timestamps that carry no offset.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// Credentials are the student's portal login.
type Credentials struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// Complete reports whether both username and password are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// MaskedUsername returns the first three characters of the username followed
// by asterisks, for log output.
func (c Credentials) MaskedUsername() string {
	if c.Username == "" {
		return ""
	}
	r := []rune(c.Username)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r) + "***"
}

// WindowConfig holds the two time windows driving the engine.
type WindowConfig struct {
	// RecentMonths limits which courses are considered, by creation date.
	RecentMonths int `mapstructure:"recent_months" yaml:"recent_months"`

	// ReminderMinutes is the span before a deadline in which one reminder fires.
	ReminderMinutes int `mapstructure:"reminder_minutes" yaml:"reminder_minutes"`
}

// S3Config configures the S3-compatible state backend.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Region    string `mapstructure:"region" yaml:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// StateConfig selects and configures the persisted set store.
type StateConfig struct {
	Backend     string   `mapstructure:"backend" yaml:"backend"`
	Dir         string   `mapstructure:"dir" yaml:"dir"`
	SQLitePath  string   `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	RedisURL    string   `mapstructure:"redis_url" yaml:"redis_url"`
	RedisPrefix string   `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	S3          S3Config `mapstructure:"s3" yaml:"s3"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`
	To       string `mapstructure:"to" yaml:"to"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`
}

// NotifyConfig holds the notification channels. Every channel is optional;
// with none configured, notifications are skipped.
type NotifyConfig struct {
	Parallelism       int            `mapstructure:"parallelism" yaml:"parallelism"`
	Timeout           time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	Locale            string         `mapstructure:"locale" yaml:"locale"`
	DiscordWebhookURL string         `mapstructure:"discord_webhook_url" yaml:"discord_webhook_url"`
	SlackWebhookURL   string         `mapstructure:"slack_webhook_url" yaml:"slack_webhook_url"`
	Telegram          TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Email             EmailConfig    `mapstructure:"email" yaml:"email"`
}

// Channels lists the configured delivery channels by name.
func (n NotifyConfig) Channels() []string {
	var names []string
	if n.DiscordWebhookURL != "" {
		names = append(names, "discord")
	}
	if n.SlackWebhookURL != "" {
		names = append(names, "slack")
	}
	if n.Telegram.Token != "" && n.Telegram.ChatID != 0 {
		names = append(names, "telegram")
	}
	if n.Email.Host != "" && n.Email.To != "" {
		names = append(names, "email")
	}
	return names
}

// AnyChannel reports whether at least one delivery channel is configured.
func (n NotifyConfig) AnyChannel() bool {
	return len(n.Channels()) > 0
}

// LogConfig holds logger settings.
type LogConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
	File   string `mapstructure:"file" yaml:"file"`
}

// DaemonConfig holds the schedule used by the daemon command.
type DaemonConfig struct {
	Schedule string `mapstructure:"schedule" yaml:"schedule"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Portal      PortalConfig `mapstructure:"portal" yaml:"portal"`
	Credentials Credentials  `mapstructure:"credentials" yaml:"credentials"`
	Windows     WindowConfig `mapstructure:"windows" yaml:"windows"`
	State       StateConfig  `mapstructure:"state" yaml:"state"`
	Notify      NotifyConfig `mapstructure:"notify" yaml:"notify"`
	Log         LogConfig    `mapstructure:"log" yaml:"log"`
	Daemon      DaemonConfig `mapstructure:"daemon" yaml:"daemon"`
}

// defaults mirrors the values the bot has always used.
var defaults = map[string]any{
	"portal.base_url":          "https://eminus.uv.mx",
	"portal.timeout":           "15s",
	"portal.timezone":          "America/Mexico_City",
	"windows.recent_months":    6,
	"windows.reminder_minutes": 10,
	"state.backend":            BackendFile,
	"state.dir":                ".",
	"state.redis_url":          "redis://localhost:6379/0",
	"state.redis_prefix":       "eminus-watch",
	"state.s3.prefix":          "eminus-watch",
	"state.s3.region":          "us-east-1",
	"state.s3.use_ssl":         true,
	"notify.parallelism":       1,
	"notify.timeout":           "10s",
	"notify.locale":            "es-MX",
	"log.format":               "text",
	"daemon.schedule":          "*/5 * * * *",
}

// envAliases are the variable names the original GitHub Actions workflow set.
// They are accepted next to the prefixed names.
var envAliases = map[string][]string{
	"credentials.username":        {"USERNAMEEMINUS"},
	"credentials.password":        {"PASSWORD"},
	"notify.discord_webhook_url":  {"DISCORD_WEBHOOK_URL"},
	"notify.slack_webhook_url":    {"SLACK_WEBHOOK_URL"},
	"notify.telegram.token":       {"TELEGRAM_BOT_TOKEN"},
	"notify.telegram.chat_id":     {"TELEGRAM_CHAT_ID"},
	"notify.email.host":           nil,
	"notify.email.port":           nil,
	"notify.email.username":       nil,
	"notify.email.password":       nil,
	"notify.email.from":           nil,
	"notify.email.to":             nil,
	"notify.email.tls":            nil,
	"state.sqlite_path":           nil,
	"state.s3.endpoint":           nil,
	"state.s3.bucket":             nil,
	"state.s3.access_key":         {"AWS_ACCESS_KEY_ID"},
	"state.s3.secret_key":         {"AWS_SECRET_ACCESS_KEY"},
	"log.file":                    nil,
	"log.debug":                   nil,
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/eminus-watch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "eminus-watch", "config.yaml")
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading env file %s: %w", p, err)
		}
	}
	return nil
}

// newViper returns a viper instance with defaults and environment bindings.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// envName returns the prefixed variable name for a config key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadConfig reads configuration from the given YAML file path, then applies
// environment overrides. A missing file is not an error; defaults and the
// environment still apply. An empty path skips the file entirely.
func LoadConfig(path string) (*AppConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = filepath.Join(cfg.State.Dir, "eminus-watch.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges and enumerations. Credentials are checked
// separately by the caller since they may come from the keyring.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Windows.RecentMonths <= 0 {
		errs = append(errs, fmt.Errorf("windows.recent_months must be positive, got %d", c.Windows.RecentMonths))
	}
	if c.Windows.ReminderMinutes <= 0 {
		errs = append(errs, fmt.Errorf("windows.reminder_minutes must be positive, got %d", c.Windows.ReminderMinutes))
	}
	if c.Notify.Parallelism <= 0 {
		errs = append(errs, fmt.Errorf("notify.parallelism must be positive, got %d", c.Notify.Parallelism))
	}

	switch c.State.Backend {
	case BackendFile, BackendSQLite, BackendRedis:
	case BackendS3:
		if c.State.S3.Endpoint == "" || c.State.S3.Bucket == "" {
			errs = append(errs, errors.New("state.s3.endpoint and state.s3.bucket are required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state.backend %q", c.State.Backend))
	}

	if _, err := time.LoadLocation(c.Portal.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("portal.timezone: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the configured portal time zone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Portal.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
