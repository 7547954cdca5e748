package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Storage   StorageConfig     `yaml:"storage"`
	Alarms    AlarmsConfig      `yaml:"alarms"`
	Schedule  ScheduleConfig    `yaml:"schedule"`
	Reconcile ReconcileConfig   `yaml:"reconcile"`
	Notify    NotifyConfig      `yaml:"notify"`
	Auth      AuthConfig        `yaml:"auth"`
	Metrics   MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Schedule.Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if err := c.Notify.Validate(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the reminder collection lives.
//
// Path is a directory for the file and badger backends and a database file
// for sqlite. It is ignored by the memory backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Key == "" {
		c.Key = "reminders"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(BackendFile, BackendSQLite, BackendBadger, BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend != BackendMemory, validation.Required)),
	)
}

// AlarmsConfig holds the timer journal location. An empty SQLitePath keeps
// alarms in memory only.
type AlarmsConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// ScheduleConfig holds wake-up scheduling options.
type ScheduleConfig struct {
	Grace time.Duration `yaml:"grace"`
}

// Validate validates the schedule configuration.
func (c *ScheduleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Grace, validation.Required, validation.Min(time.Millisecond)),
	)
}

// ReconcileConfig controls reconciliation behaviour.
type ReconcileConfig struct {
	PruneOrphans bool `yaml:"prune_orphans"`
	// Watch re-runs reconciliation when the collection file changes on disk.
	// Only the file backend supports it.
	Watch bool `yaml:"watch"`
}

// NotifyConfig selects the alert channels.
type NotifyConfig struct {
	Log      bool           `yaml:"log"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// Validate validates the notify configuration.
func (c *NotifyConfig) Validate() error {
	return c.Telegram.Validate()
}

// TelegramConfig holds Telegram Bot API credentials.
type TelegramConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

// Enabled reports whether Telegram delivery is configured.
func (c *TelegramConfig) Enabled() bool {
	return c.Token != ""
}

// Validate validates the Telegram configuration.
func (c *TelegramConfig) Validate() error {
	if (c.Token == "") != (c.ChatID == "") {
		return fmt.Errorf("telegram: token and chat_id must be set together")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.When(c.BaseURL != "", validation.Length(8, 0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "./data",
			Key:     "reminders",
		},
		Schedule: ScheduleConfig{
			Grace: time.Minute,
		},
		Reconcile: ReconcileConfig{
			PruneOrphans: true,
		},
		Notify: NotifyConfig{
			Log: true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
