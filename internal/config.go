package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Watch   WatchConfig       `yaml:"watch"`
	Journal JournalConfig     `yaml:"journal"`
	CORS    CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Journal.Validate()
}

// ApplicationConfig holds application-level configuration. LogFile, when set,
// receives a rotated copy of the log stream.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile  string     `yaml:"log_file" env:"LOG_FILE"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" env:"PORT"`
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

// StoreConfig holds the path of the JSON document backing the mock data.
type StoreConfig struct {
	Path string `yaml:"path" env:"MOCKBOX_DB_PATH"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// WatchConfig controls reloading the document after external edits.
type WatchConfig struct {
	Enabled bool `yaml:"enabled" env:"MOCKBOX_WATCH"`
}

// JournalConfig holds the SQLite change journal configuration.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" env:"MOCKBOX_JOURNAL"`
	Path    string `yaml:"path" env:"MOCKBOX_JOURNAL_PATH"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.When(c.Enabled, validation.Required)),
	)
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"MOCKBOX_CORS_ORIGINS" envSeparator:","`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Store: StoreConfig{
			Path: "mocks.json",
		},
		Watch: WatchConfig{
			Enabled: true,
		},
		Journal: JournalConfig{
			Path: "mockbox-journal.db",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}
